package router

import (
	"context"
	"time"

	"sistema-servicios/internal/config"
	"sistema-servicios/internal/handler"
	"sistema-servicios/internal/infra"
	"sistema-servicios/internal/middleware"
	"sistema-servicios/internal/repository"
	"sistema-servicios/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// encolador receives the best-effort retries and summary mails; ctx bounds
// the background goroutines started here (rate limiter purge).
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, encolador service.Encolador, smtpCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(ctx, cfg.RateLimit, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	personaRepo := repository.NewPersonaRepository(db)
	cajaMayorRepo := repository.NewCajaMayorRepository(db)
	usoDevRepo := repository.NewUsoDevolucionRepository(db)
	depositoRepo := repository.NewDepositoRepository(db)
	bancoRepo := repository.NewBancoRepository(db)
	rrhhRepo := repository.NewRRHHRepository(db)
	cajaRepo := repository.NewCajaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	personaSvc := service.NewPersonaService(personaRepo)
	cajaMayorSvc := service.NewCajaMayorService(cajaMayorRepo)
	usoDevSvc := service.NewUsoDevolucionService(usoDevRepo, personaRepo, cajaMayorSvc, cajaMayorRepo, encolador)
	depositoSvc := service.NewDepositoService(depositoRepo, bancoRepo, cajaMayorSvc, cajaMayorRepo, encolador)
	rrhhSvc := service.NewRRHHService(rrhhRepo, personaRepo, cfg.SalarioMinimo(), encolador)
	cajaSvc := service.NewCajaService(cajaRepo, cajaMayorSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	personasH := handler.NewPersonasHandler(personaSvc)
	usoDevH := handler.NewUsoDevolucionHandler(usoDevSvc)
	cajaMayorH := handler.NewCajaMayorHandler(cajaMayorSvc)
	depositosH := handler.NewDepositosHandler(depositoSvc)
	rrhhH := handler.NewRRHHHandler(rrhhSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb, smtpCB))

	idemTTL := time.Duration(cfg.IdempotencyTTLHours) * time.Hour
	v1 := r.Group("/v1", middleware.Actor(), middleware.Idempotency(rdb, idemTTL))
	{
		personas := v1.Group("/personas")
		{
			personas.POST("", personasH.Crear)
			personas.GET("", personasH.Listar)
			personas.GET("/:id", personasH.Obtener)
			personas.GET("/:id/saldos", personasH.Saldos)
		}

		usoDev := v1.Group("/uso-devolucion")
		{
			usoDev.POST("", usoDevH.Crear)
			usoDev.GET("", usoDevH.Listar)
			usoDev.GET("/:id", usoDevH.Obtener)
			usoDev.POST("/:id/anular", usoDevH.Anular)
		}

		cajaMayor := v1.Group("/caja-mayor")
		{
			cajaMayor.POST("/movimientos", cajaMayorH.RegistrarManual)
			cajaMayor.GET("/movimientos", cajaMayorH.Listar)
			cajaMayor.POST("/movimientos/:id/anular", cajaMayorH.AnularManual)
			cajaMayor.GET("/saldos", cajaMayorH.Saldos)
		}

		v1.POST("/bancos", depositosH.CrearBanco)
		v1.GET("/bancos", depositosH.ListarBancos)
		v1.POST("/cuentas-bancarias", depositosH.CrearCuenta)
		v1.GET("/cuentas-bancarias", depositosH.ListarCuentas)

		depositos := v1.Group("/depositos")
		{
			depositos.POST("", depositosH.Crear)
			depositos.GET("", depositosH.Listar)
			depositos.GET("/:id", depositosH.Obtener)
			depositos.PUT("/:id", depositosH.Actualizar)
			depositos.POST("/:id/cancelar", depositosH.Cancelar)
		}

		rrhh := v1.Group("/rrhh")
		{
			rrhh.POST("/movimientos", rrhhH.CrearMovimiento)
			rrhh.DELETE("/movimientos/:id", rrhhH.AnularMovimiento)
			rrhh.POST("/vales", rrhhH.CrearVale)
			rrhh.DELETE("/vales/:id", rrhhH.AnularVale)
			rrhh.POST("/sueldos", rrhhH.RegistrarSueldo)
			rrhh.POST("/finalizar", rrhhH.Finalizar)
			rrhh.POST("/reabrir", rrhhH.Reabrir)
			rrhh.GET("/:persona_id/:anio/:mes", rrhhH.GetMovimientos)
			rrhh.GET("/:persona_id/:anio/:mes/pdf", rrhhH.DescargarPDF)
		}

		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", cajaH.Abrir)
			caja.POST("/movimiento", cajaH.RegistrarMovimiento)
			caja.POST("/arqueo", cajaH.Arqueo)
			caja.GET("/activa", cajaH.GetActiva)
			caja.GET("/historial", cajaH.Historial)
			caja.GET("/:id/reporte", cajaH.ObtenerReporte)
		}
	}

	// Swagger UI only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
