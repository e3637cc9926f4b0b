package service

import (
	"context"
	"errors"
	"sync"

	catalogerrors "libretto/internal/catalog/errors"
	"libretto/internal/catalog/repository"
	"libretto/internal/catalog/validator"
	"libretto/pkg/config"
	apperrors "libretto/pkg/errors"
	"libretto/pkg/model"
	"libretto/pkg/sanitizer"
)

type GenreService interface {
	Create(ctx context.Context, genre *model.Genre) error
	GetByID(ctx context.Context, id string) (*model.Genre, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Genre, int64, error)
	Update(ctx context.Context, id string, updates *model.GenreUpdate) (*model.Genre, error)
	Delete(ctx context.Context, id string) error
}

type genreService struct {
	repo      repository.GenreRepository
	validator *validator.CatalogValidator
	cfg       *config.Config
}

func NewGenreService(repo repository.GenreRepository, validator *validator.CatalogValidator, cfg *config.Config) GenreService {
	return &genreService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *genreService) Create(ctx context.Context, genre *model.Genre) error {
	genre.Name = sanitizer.NormalizeLabel(genre.Name)
	if err := s.validator.ValidateGenre(genre); err != nil {
		s.cfg.Log.Warn("Genre validation failed", "error", err)
		return apperrors.Validation("Genre validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, genre); err != nil {
		s.cfg.Log.Error("Failed to create genre", "error", err)
		return apperrors.Internal("Failed to create genre", err)
	}

	s.cfg.Log.Info("Genre created successfully", "id", genre.ID, "name", genre.Name)
	return nil
}

func (s *genreService) GetByID(ctx context.Context, id string) (*model.Genre, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Genre ID cannot be empty")
	}

	genre, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Genre", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid genre ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve genre", err)
	}

	return genre, nil
}

func (s *genreService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Genre, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var genres []*model.Genre
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count genres", "error", errCount)
			errCount = apperrors.Internal("Failed to count genres", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		genres, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list genres", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve genres", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return genres, count, nil
}

func (s *genreService) Update(ctx context.Context, id string, updates *model.GenreUpdate) (*model.Genre, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Genre ID cannot be empty")
	}
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateGenreUpdate(updates); err != nil {
		s.cfg.Log.Warn("Genre update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := *existing
	if updates.Name != nil {
		merged.Name = sanitizer.NormalizeLabel(*updates.Name)
	}
	if err := s.validator.ValidateGenre(&merged); err != nil {
		return nil, apperrors.Validation("Genre validation failed", map[string]any{"error": err.Error()})
	}

	if _, err := s.repo.Update(ctx, id, &merged); err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Genre", id)
		}
		s.cfg.Log.Error("Failed to update genre", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update genre", err)
	}

	merged.ID = id
	s.cfg.Log.Info("Genre updated successfully", "id", id)
	return &merged, nil
}

func (s *genreService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Genre ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Genre", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid genre ID format")
		}
		return apperrors.Internal("Failed to delete genre", err)
	}

	s.cfg.Log.Info("Genre deleted successfully", "id", id)
	return nil
}
