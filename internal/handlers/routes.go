package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/service"
)

const bodyLimit = 10 * 1024 * 1024

// Tokens issues and verifies admin tokens
type Tokens interface {
	TokenIssuer
	TokenVerifier
}

// Deps are the components the routes call into
type Deps struct {
	Rulemakings *service.RulemakingService
	Submissions *service.SubmissionService
	Analytics   *service.AnalyticsService
	Admins      *service.AdminService
	Tokens      Tokens
	DB          DBPinger
	Redis       redis.UniversalClient
}

// Options configure the HTTP surface
type Options struct {
	Env             string
	ClientURL       string
	RateLimitMax    int
	RateLimitWindow time.Duration
	Logger          *zap.Logger
}

func (o Options) production() bool { return o.Env == "production" }

func (o Options) development() bool { return o.Env == "development" }

// NewApp builds the fiber app with its middleware stack and routes
func NewApp(opts Options, deps Deps) *fiber.App {
	logger := opts.Logger.Named("http")

	app := fiber.New(fiber.Config{
		AppName:      "Public Comment API",
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler(opts.production(), logger),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: !opts.production()}))
	app.Use(requestid.New())
	app.Use(RequestLogger(logger))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     opts.ClientURL,
		AllowCredentials: true,
	}))
	if opts.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimitMax,
			Expiration: opts.RateLimitWindow,
			Next: func(c *fiber.Ctx) bool {
				return opts.development() || c.Path() == "/health"
			},
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
			},
		}))
	}

	Register(app, opts.Env, deps)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Route not found")
	})

	return app
}

// Register mounts every route on app
func Register(app fiber.Router, env string, deps Deps) {
	admin := RequireAdmin(deps.Tokens, deps.Admins)

	app.Get("/health", HealthHandler(env, deps.DB, deps.Redis))

	// Rulemaking routes
	rulemakings := app.Group("/rulemakings")
	rulemakings.Get("/", ListRulemakingsHandler(deps.Rulemakings))
	rulemakings.Get("/:id", GetRulemakingHandler(deps.Rulemakings))
	rulemakings.Get("/:id/analytics", RulemakingAnalyticsHandler(deps.Analytics))
	rulemakings.Post("/", admin, CreateRulemakingHandler(deps.Rulemakings))
	rulemakings.Put("/:id", admin, UpdateRulemakingHandler(deps.Rulemakings))

	// Comment routes
	comments := app.Group("/comments")
	comments.Post("/generate", GenerateCommentHandler(deps.Submissions))
	comments.Put("/:id", FinalizeCommentHandler(deps.Submissions))
	comments.Get("/:id", GetCommentHandler(deps.Submissions))
	comments.Get("/:id/letter", LetterHandler(deps.Submissions, deps.Rulemakings))

	// Submission routes
	submissions := app.Group("/submissions", admin)
	submissions.Get("/", ListSubmissionsHandler(deps.Submissions))
	submissions.Get("/stats", SubmissionStatsHandler(deps.Submissions))
	submissions.Get("/export", ExportSubmissionsHandler(deps.Submissions))
	submissions.Get("/:id", GetSubmissionHandler(deps.Submissions))

	// Auth routes
	app.Post("/auth/admin/login", LoginHandler(deps.Admins, deps.Tokens))
	app.Post("/auth/admin/logout", LogoutHandler())

	// Admin management routes
	admins := app.Group("/admin/admins", admin)
	admins.Get("/", ListAdminsHandler(deps.Admins))
	admins.Post("/", CreateAdminHandler(deps.Admins))
	admins.Put("/:id", UpdateAdminHandler(deps.Admins))
	admins.Put("/:id/password", ChangeAdminPasswordHandler(deps.Admins))
	admins.Delete("/:id", DeleteAdminHandler(deps.Admins))
}
