package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tamarLevanoni/couple-time-backend/api/controllers"
	"github.com/tamarLevanoni/couple-time-backend/api/middleware"
	"github.com/tamarLevanoni/couple-time-backend/internal/auth"
	"github.com/tamarLevanoni/couple-time-backend/internal/centers"
	"github.com/tamarLevanoni/couple-time-backend/internal/games"
	"github.com/tamarLevanoni/couple-time-backend/internal/notifications"
	"github.com/tamarLevanoni/couple-time-backend/internal/rentals"
	"github.com/tamarLevanoni/couple-time-backend/internal/users"
	"github.com/tamarLevanoni/couple-time-backend/pkg/config"
	"github.com/tamarLevanoni/couple-time-backend/pkg/db"
	"github.com/tamarLevanoni/couple-time-backend/pkg/logger"
	"github.com/tamarLevanoni/couple-time-backend/pkg/redis"
)

// Services groups the wired domain services the router exposes.
type Services struct {
	Auth          auth.Service
	Users         users.Service
	Games         games.Service
	Centers       centers.Service
	Rentals       rentals.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
	})

	// Browsing the catalog and requesting as a guest need no account.
	r.Group(func(r chi.Router) {
		r.Get("/api/v1/games", controllers.GameList(svcs.Games, logg))
		r.Get("/api/v1/games/{gameId}", controllers.GameGet(svcs.Games, logg))
		r.Get("/api/v1/centers", controllers.CenterList(svcs.Centers, logg))
		r.Get("/api/v1/centers/{centerId}", controllers.CenterGet(svcs.Centers, logg))
		r.Get("/api/v1/centers/{centerId}/instances", controllers.InstanceListForCenter(svcs.Games, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).
			Post("/api/v1/rentals/guest", controllers.RentalGuestCreate(svcs.Rentals, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, cfg.APIRateLimit.Limit, cfg.APIRateLimit.Window, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/rentals", func(r chi.Router) {
			r.Post("/", controllers.RentalCreate(svcs.Rentals, logg))
			r.Get("/mine", controllers.RentalListMine(svcs.Rentals, logg))
			r.Get("/{rentalId}", controllers.RentalGet(svcs.Rentals, logg))
			r.Get("/{rentalId}/history", controllers.RentalHistory(svcs.Rentals, logg))
			r.Post("/{rentalId}/cancel", controllers.RentalCancel(svcs.Rentals, logg))
		})

		// Coordinator tier checks happen inside the services against the
		// actor loaded from the database, not in middleware.
		r.Route("/v1/staff", func(r chi.Router) {
			r.Get("/centers/{centerId}/rentals", controllers.RentalListForCenter(svcs.Rentals, logg))
			r.Post("/rentals/{rentalId}/approve", controllers.RentalApprove(svcs.Rentals, logg))
			r.Post("/rentals/{rentalId}/reject", controllers.RentalReject(svcs.Rentals, logg))
			r.Post("/rentals/{rentalId}/return", controllers.RentalReturn(svcs.Rentals, logg))
			r.Post("/rentals/bulk", controllers.RentalBulkApply(svcs.Rentals, logg))
			r.Post("/instances", controllers.InstanceCreate(svcs.Games, logg))
			r.Post("/instances/{instanceId}/status", controllers.InstanceSetStatus(svcs.Games, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/me", controllers.UserMe(svcs.Users, logg))
			r.Put("/me", controllers.UserUpdateProfile(svcs.Users, logg))
		})

		r.Route("/v1/admin", func(r chi.Router) {
			r.Post("/games", controllers.GameCreate(svcs.Games, logg))
			r.Put("/games/{gameId}", controllers.GameUpdate(svcs.Games, logg))
			r.Post("/centers", controllers.CenterCreate(svcs.Centers, logg))
			r.Put("/centers/{centerId}", controllers.CenterUpdate(svcs.Centers, logg))
			r.Post("/centers/{centerId}/staff", controllers.CenterAssignStaff(svcs.Centers, logg))
			r.Get("/users", controllers.UserList(svcs.Users, logg))
			r.Get("/users/{userId}", controllers.UserGet(svcs.Users, logg))
			r.Put("/users/{userId}/roles", controllers.UserAssignRoles(svcs.Users, logg))
			r.Put("/users/{userId}/active", controllers.UserSetActive(svcs.Users, logg))
		})
	})

	return r
}
