package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sngm3741/formsg-intake/api/internal/config"
	"github.com/sngm3741/formsg-intake/api/internal/infrastructure/formsg"
	mongodoc "github.com/sngm3741/formsg-intake/api/internal/infrastructure/mongo"
	commonhttp "github.com/sngm3741/formsg-intake/api/internal/interfaces/http/common"
	webhookhttp "github.com/sngm3741/formsg-intake/api/internal/interfaces/http/webhook"
	"github.com/sngm3741/formsg-intake/api/internal/submission/application"
	"github.com/sngm3741/formsg-intake/api/internal/submission/domain"
)

// Server は HTTP サーバーのライフサイクルを管理し、Webhook ハンドラへ依存注入するコンポジションルート。
type Server struct {
	logger         *logrus.Logger
	client         *mongo.Client
	addr           string
	allowedOrigins []string
	responsesJWT   *config.JWTConfig
	webhook        *webhookhttp.Handler
}

// New は Config と接続済みの Mongo クライアントを受け取り、署名検証・復号・永続化を組み立てた Server を返す。
func New(cfg config.Config, client *mongo.Client) (*Server, error) {
	publicKey, err := formsg.SigningPublicKey(cfg.FormSGMode, cfg.SigningPublicKey)
	if err != nil {
		return nil, err
	}
	decryptor, err := formsg.NewCrypto(cfg.FormSecretKey)
	if err != nil {
		return nil, err
	}
	if config.HasAttachments {
		cfg.ServerLog.Warn("attachment decryption is not supported; using plain decryption")
	}

	repo := mongodoc.NewResponseRepository(client.Database(cfg.MongoDatabase), cfg.ResponseCollection)
	fields := domain.FieldIDs{
		FirstName:  cfg.Fields.FirstName,
		LastName:   cfg.Fields.LastName,
		PostalCode: cfg.Fields.PostalCode,
	}

	return &Server{
		logger:         cfg.ServerLog,
		client:         client,
		addr:           cfg.Addr,
		allowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		responsesJWT:   cfg.ResponsesJWT,
		webhook: webhookhttp.NewHandler(webhookhttp.Config{
			Logger:        cfg.ServerLog,
			Authenticator: formsg.NewWebhooks(publicKey, cfg.SignatureMaxAge),
			Decryptor:     decryptor,
			Commands:      application.NewSubmissionCommandService(repo, fields),
			Queries:       application.NewResponseQueryService(repo),
			PostURI:       cfg.PostURI,
		}),
	}, nil
}

// Router はミドルウェアとルーティングを組み立てる。
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.logger, NoColor: true}))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", formsg.SignatureHeaderName},
		MaxAge:         300,
	}))

	router.Get("/healthz", s.healthHandler())
	s.webhook.Register(router, s.responsesAuth())
	return router
}

// Run は HTTP サーバーを起動し、シグナル受信で停止する。
// Mongo クライアントは呼び出し前に接続・疎通確認済みであること。
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Infof("HTTP サーバー起動: http://%s", s.addr)
		errChan <- httpServer.ListenAndServe()
	}()

	err := waitForShutdown(ctx, httpServer, errChan, s.logger)
	s.shutdown(context.Background())
	return err
}

// healthHandler は MongoDB への疎通確認を行い、監視系からのヘルスチェック要求に応える。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
			commonhttp.WriteJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}

		commonhttp.WriteJSON(w, r, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// responsesAuth は RESPONSES_JWT_SECRET が設定されている場合のみ一覧取得を Bearer トークンで保護する。
func (s *Server) responsesAuth() func(http.Handler) http.Handler {
	if s.responsesJWT == nil {
		return nil
	}
	return s.authMiddleware
}

// authMiddleware は Authorization ヘッダーから JWT を検証し、認証済みユーザーをコンテキストへ詰める。
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			commonhttp.WriteMessage(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := s.parseAuthToken(strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix)))
		if err != nil {
			s.logger.WithError(err).Debug("responses token rejected")
			commonhttp.WriteMessage(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := commonhttp.ContextWithUser(r.Context(), commonhttp.AuthenticatedUser{
			ID:   claims.Subject,
			Name: claims.Name,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseAuthToken は HS256 の署名と Issuer・Subject を検証する。
func (s *Server) parseAuthToken(tokenString string) (*authClaims, error) {
	if s.responsesJWT == nil {
		return nil, errors.New("認証設定が構成されていません")
	}
	if tokenString == "" {
		return nil, errors.New("アクセストークンが空です")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
	}
	if s.responsesJWT.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.responsesJWT.Issuer))
	}

	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.responsesJWT.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("アクセストークンが無効です: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("アクセストークンが無効です")
	}
	return claims, nil
}

type authClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// shutdown は MongoDB クライアントをタイムアウト付きで切断する。
func (s *Server) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(shutdownCtx); err != nil {
		s.logger.Errorf("MongoDB 切断時にエラー: %v", err)
	}
}

// waitForShutdown は ListenAndServe の終了、OS シグナル、ctx のキャンセルを監視し、graceful shutdown を実現する。
func waitForShutdown(ctx context.Context, httpServer *http.Server, errChan <-chan error, logger *logrus.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバーが異常終了: %w", err)
		}
		return nil
	case sig := <-sigChan:
		logger.Infof("シグナル %s を受信。サーバー停止処理を開始します。", sig)
	case <-ctx.Done():
		logger.Info("コンテキスト終了。サーバー停止処理を開始します。")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバー停止時にエラー: %w", err)
	}
	return nil
}
