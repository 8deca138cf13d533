// Package server exposes tile processing over HTTP: SNS deliveries are
// accepted on POST /notifications and processed synchronously.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/urbancover/internal/cover"
	"github.com/sells-group/urbancover/internal/metrics"
	"github.com/sells-group/urbancover/internal/stac"
)

// Rejection reasons.
const (
	ReasonRateLimited = "rate_limited"
	ReasonInvalid     = "invalid"
	ReasonFailed      = "failed"
)

// maxBodyBytes bounds a notification body. STAC items are a few KB.
const maxBodyBytes = 4 << 20

// Processor runs one invocation.
type Processor interface {
	Process(ctx context.Context, item *stac.Item) (*cover.Outcome, error)
}

// Options tune the server.
type Options struct {
	// Rate is notifications per second; zero disables limiting.
	Rate           float64
	Burst          int
	AllowedOrigins []string
	// Client confirms SNS subscriptions. Defaults to a 10s timeout client.
	Client *http.Client
	// AllowedTopics lists the topic ARNs accepted. Empty accepts any topic;
	// SubscribeURLs are still restricted to SNS endpoints.
	AllowedTopics []string
}

// Server routes notifications to a Processor.
type Server struct {
	proc    Processor
	limiter *rate.Limiter
	client  *http.Client
	topics  []string
	router  chi.Router
}

// New builds a Server and its routes.
func New(proc Processor, opts Options) *Server {
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, _ []*http.Request) error {
				return validSubscribeURL(req.URL.String())
			},
		}
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		proc:    proc,
		limiter: rate.NewLimiter(limit, burst),
		client:  client,
		topics:  opts.AllowedTopics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Amz-Sns-Message-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/notifications", s.handleNotification)

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// snsMessage is the body SNS posts to an HTTP subscription.
type snsMessage struct {
	Type         string `json:"Type"`
	MessageID    string `json:"MessageId"`
	TopicArn     string `json:"TopicArn"`
	Message      string `json:"Message"`
	SubscribeURL string `json:"SubscribeURL"`
}

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	log := zap.L().With(zap.String("request_id", requestID(r)))

	if !s.limiter.Allow() {
		metrics.NotificationsRejectedTotal.WithLabelValues(ReasonRateLimited).Inc()
		writeJSON(w, http.StatusTooManyRequests, cover.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       "rate limited",
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.reject(w, http.StatusBadRequest, "unreadable body")
		return
	}

	var msg snsMessage
	_ = json.Unmarshal(body, &msg)

	if msg.Type != "" && !s.topicAllowed(msg.TopicArn) {
		log.Warn("server: topic not allowed", zap.String("topic", msg.TopicArn), zap.String("type", msg.Type))
		s.reject(w, http.StatusBadRequest, "topic not allowed")
		return
	}

	var item *stac.Item
	switch msg.Type {
	case "SubscriptionConfirmation":
		if err := validSubscribeURL(msg.SubscribeURL); err != nil {
			log.Warn("server: refusing subscription url", zap.String("topic", msg.TopicArn), zap.Error(err))
			s.reject(w, http.StatusBadRequest, "invalid subscribe url")
			return
		}
		if err := s.confirm(r.Context(), msg.SubscribeURL); err != nil {
			log.Error("server: subscription confirmation failed", zap.String("topic", msg.TopicArn), zap.Error(err))
			metrics.NotificationsRejectedTotal.WithLabelValues(ReasonFailed).Inc()
			writeJSON(w, http.StatusBadGateway, cover.Response{StatusCode: http.StatusBadGateway, Body: "confirmation failed"})
			return
		}
		log.Info("server: subscription confirmed", zap.String("topic", msg.TopicArn))
		writeJSON(w, http.StatusOK, cover.Response{StatusCode: http.StatusOK, Body: "subscribed"})
		return
	case "UnsubscribeConfirmation":
		log.Info("server: unsubscribed", zap.String("topic", msg.TopicArn))
		writeJSON(w, http.StatusOK, cover.Response{StatusCode: http.StatusOK, Body: "unsubscribed"})
		return
	case "Notification":
		item, err = stac.ParseItem([]byte(msg.Message))
	default:
		item, err = stac.ParseNotification(body)
	}
	if err != nil {
		log.Warn("server: invalid notification", zap.Error(err))
		s.reject(w, http.StatusBadRequest, "invalid notification")
		return
	}

	out, err := s.proc.Process(r.Context(), item)
	if err != nil {
		log.Error("server: processing failed", zap.String("item_id", item.ID), zap.Error(err))
		metrics.NotificationsRejectedTotal.WithLabelValues(ReasonFailed).Inc()
		writeJSON(w, http.StatusInternalServerError, cover.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       "processing failed",
		})
		return
	}

	resp := out.Response()
	writeJSON(w, resp.StatusCode, resp)
}

func (s *Server) reject(w http.ResponseWriter, status int, body string) {
	metrics.NotificationsRejectedTotal.WithLabelValues(ReasonInvalid).Inc()
	writeJSON(w, status, cover.Response{StatusCode: status, Body: body})
}

func (s *Server) topicAllowed(arn string) bool {
	return len(s.topics) == 0 || slices.Contains(s.topics, arn)
}

// snsHost matches the regional SNS endpoints, including the China partition.
var snsHost = regexp.MustCompile(`^sns\.[a-z0-9-]+\.amazonaws\.com(\.cn)?$`)

// validSubscribeURL accepts only https URLs on an SNS endpoint.
func validSubscribeURL(raw string) error {
	if raw == "" {
		return eris.New("server: confirmation has no SubscribeURL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return eris.Wrap(err, "server: parse SubscribeURL")
	}
	if u.Scheme != "https" {
		return eris.Errorf("server: SubscribeURL scheme %q is not https", u.Scheme)
	}
	if u.User != nil || u.Port() != "" || !snsHost.MatchString(u.Hostname()) {
		return eris.Errorf("server: SubscribeURL host %q is not an SNS endpoint", u.Host)
	}
	return nil
}

// confirm visits the subscription URL SNS sent. The URL must already have
// passed validSubscribeURL.
func (s *Server) confirm(ctx context.Context, subscribeURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subscribeURL, nil)
	if err != nil {
		return eris.Wrap(err, "server: build confirmation request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "server: confirm subscription")
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("server: confirm subscription: status %d", resp.StatusCode)
	}
	return nil
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
