package main

import (
	"libretto/internal/catalog/handler"
	"libretto/internal/catalog/repository"
	"libretto/internal/catalog/service"
	"libretto/internal/catalog/validator"
	"libretto/pkg/app"
	"libretto/pkg/config"
)

const ServiceName = "catalog"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Catalog service")

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(initHandler(cfg))
	serverApp.Run()
}

func initHandler(cfg *config.Config) *handler.CatalogHandler {
	catalogValidator := validator.NewCatalogValidator(cfg.Log)

	userRepo := repository.NewMongoUserRepository(cfg)
	bookRepo := repository.NewMongoBookRepository(cfg)
	genreRepo := repository.NewMongoGenreRepository(cfg)

	userService := service.NewUserService(userRepo, catalogValidator, cfg)
	bookService := service.NewBookService(bookRepo, userRepo, genreRepo, catalogValidator, cfg)
	genreService := service.NewGenreService(genreRepo, catalogValidator, cfg)

	cfg.Log.Info("Catalog services initialized", "database", cfg.MongoDatabaseName)

	return handler.NewCatalogHandler(
		handler.NewUserHandler(userService, cfg.Log),
		handler.NewBookHandler(bookService, cfg.Log),
		handler.NewGenreHandler(genreService, cfg.Log),
	)
}
