// Package server 通过 HTTP 提供单据生成：生成结果暂存在 kvstore 中，过期后自动失效。
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ByLCY/romaneio/docspec"
	"github.com/ByLCY/romaneio/documents"
	"github.com/ByLCY/romaneio/kvstore"
)

const (
	DefaultTTL          = 10 * time.Minute
	DefaultMaxBodyBytes = 8 << 20
	keyPrefix           = "doc:"
)

// Generator 是服务依赖的单据生成能力。
type Generator interface {
	Generate(ctx context.Context, kind documents.Kind, input json.RawMessage) ([]byte, error)
	Kinds() []documents.Kind
}

// Options 配置 Server。
type Options struct {
	Generator    Generator
	Store        kvstore.Store
	TTL          time.Duration
	MaxBodyBytes int64
	Logger       *zap.Logger
	Now          func() time.Time
}

// Server 是 HTTP 服务。
type Server struct {
	gen     Generator
	store   kvstore.Store
	ttl     time.Duration
	maxBody int64
	logger  *zap.Logger
	now     func() time.Time
	router  *mux.Router
}

// New 创建服务并注册路由。
func New(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, errors.New("server: generator 不能为空")
	}
	s := &Server{
		gen:     opts.Generator,
		store:   opts.Store,
		ttl:     opts.TTL,
		maxBody: opts.MaxBodyBytes,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if s.store == nil {
		s.store = kvstore.NewMemory()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}

	r := mux.NewRouter()
	r.Use(s.requestLogging)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/documents/{kind}/render", s.handleRender).Methods(http.MethodPost)
	r.HandleFunc("/documents/{kind}", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/documents/{id}", s.handleGet).Methods(http.MethodGet)
	s.router = r
	return s, nil
}

// Handler 返回路由。
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe 监听 addr，ctx 取消后优雅关闭。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[Server] Listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("[Server] Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type createResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// pinger 由需要网络连接的存储实现，例如 kvstore.Redis。
type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "store": "ok", "kinds": s.gen.Kinds()}
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("[Server] Store ping failed", zap.Error(err))
			body["status"] = "degraded"
			body["store"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind, data, ok := s.generate(w, r)
	if !ok {
		return
	}
	id, err := newID()
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.Set(r.Context(), keyPrefix+id, data, s.ttl); err != nil {
		s.fail(w, r, http.StatusInternalServerError, fmt.Errorf("暂存单据失败: %w", err))
		return
	}
	s.logger.Info("[Server] Document stored",
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.Int("bytes", len(data)),
		zap.Duration("ttl", s.ttl),
	)
	writeJSON(w, http.StatusCreated, createResponse{
		ID:        id,
		URL:       "/documents/" + id,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	kind, data, ok := s.generate(w, r)
	if !ok {
		return
	}
	writePDF(w, data, string(kind)+".pdf", r.URL.Query().Get("download") == "1")
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data, found, err := s.store.Get(r.Context(), keyPrefix+id)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, fmt.Errorf("读取单据失败: %w", err))
		return
	}
	if !found {
		s.fail(w, r, http.StatusNotFound, fmt.Errorf("单据 %s 不存在或已过期", id))
		return
	}
	writePDF(w, data, "romaneio-"+id+".pdf", r.URL.Query().Get("download") == "1")
}

// generate 读取请求体并生成单据，失败时已写出错误响应。
func (s *Server) generate(w http.ResponseWriter, r *http.Request) (documents.Kind, []byte, bool) {
	kind := documents.Kind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		s.fail(w, r, http.StatusNotFound, fmt.Errorf("未知单据类型 %q", kind))
		return "", nil, false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("请求体超过 %d 字节", tooLarge.Limit))
			return "", nil, false
		}
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("读取请求体失败: %w", err))
		return "", nil, false
	}
	data, err := s.gen.Generate(r.Context(), kind, body)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return "", nil, false
	}
	return kind, data, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, documents.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, docspec.ErrInvalidSpec):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("[Server] Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writePDF 默认内联显示，download 为 true 时作为附件下载。
func writePDF(w http.ResponseWriter, data []byte, filename string, download bool) {
	disposition := "inline"
	if download {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func newID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成编号失败: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case rec.status >= 500:
			s.logger.Error("[Server] Request", fields...)
		case rec.status >= 400:
			s.logger.Warn("[Server] Request", fields...)
		default:
			s.logger.Info("[Server] Request", fields...)
		}
	})
}
