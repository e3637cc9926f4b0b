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

type BookService interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id string) (*model.Book, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Book, int64, error)
	GetByAuthor(ctx context.Context, authorID string, limit int, offset int64) ([]*model.Book, int64, error)
	Update(ctx context.Context, id string, updates *model.BookUpdate) (*model.Book, error)
	Delete(ctx context.Context, id string) error
}

type bookService struct {
	repo      repository.BookRepository
	userRepo  repository.UserRepository
	genreRepo repository.GenreRepository
	validator *validator.CatalogValidator
	cfg       *config.Config
}

func NewBookService(
	repo repository.BookRepository,
	userRepo repository.UserRepository,
	genreRepo repository.GenreRepository,
	validator *validator.CatalogValidator,
	cfg *config.Config,
) BookService {
	return &bookService{
		repo:      repo,
		userRepo:  userRepo,
		genreRepo: genreRepo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *bookService) Create(ctx context.Context, book *model.Book) error {
	s.sanitize(book)
	if err := s.validator.ValidateBook(book); err != nil {
		s.cfg.Log.Warn("Book validation failed", "error", err)
		return apperrors.Validation("Book validation failed", map[string]any{"error": err.Error()})
	}
	if err := s.verifyReferences(ctx, book); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, book); err != nil {
		s.cfg.Log.Error("Failed to create book", "error", err)
		return apperrors.Internal("Failed to create book", err)
	}

	s.cfg.Log.Info("Book created successfully", "id", book.ID, "title", book.Title)
	return nil
}

func (s *bookService) GetByID(ctx context.Context, id string) (*model.Book, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Book ID cannot be empty")
	}

	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Book", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid book ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve book", err)
	}

	return book, nil
}

func (s *bookService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Book, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var books []*model.Book
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count books", "error", errCount)
			errCount = apperrors.Internal("Failed to count books", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		books, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list books", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve books", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return books, count, nil
}

func (s *bookService) GetByAuthor(ctx context.Context, authorID string, limit int, offset int64) ([]*model.Book, int64, error) {
	if authorID == "" {
		return nil, 0, apperrors.InvalidInput("Author ID cannot be empty")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var books []*model.Book
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByAuthor(ctx, authorID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count books by author", "author_id", authorID, "error", errCount)
			errCount = apperrors.Internal("Failed to count books", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		books, errFind = s.repo.FindByAuthor(ctx, authorID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list books by author", "author_id", authorID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve books", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return books, count, nil
}

func (s *bookService) Update(ctx context.Context, id string, updates *model.BookUpdate) (*model.Book, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Book ID cannot be empty")
	}
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateBookUpdate(updates); err != nil {
		s.cfg.Log.Warn("Book update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeBookUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validator.ValidateBook(merged); err != nil {
		return nil, apperrors.Validation("Book validation failed", map[string]any{"error": err.Error()})
	}
	if err := s.verifyReferences(ctx, merged); err != nil {
		return nil, err
	}

	if _, err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Book", id)
		}
		s.cfg.Log.Error("Failed to update book", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update book", err)
	}

	merged.ID = id
	s.cfg.Log.Info("Book updated successfully", "id", id)
	return merged, nil
}

func (s *bookService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Book ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Book", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid book ID format")
		}
		return apperrors.Internal("Failed to delete book", err)
	}

	s.cfg.Log.Info("Book deleted successfully", "id", id)
	return nil
}

func (s *bookService) sanitize(b *model.Book) {
	b.Title = sanitizer.NormalizeTitle(b.Title)
	b.GenreIDs = sanitizer.SanitizeSlice(b.GenreIDs, sanitizer.TrimAndNormalize)
}

// verifyReferences checks the author and all genre IDs exist before a write.
func (s *bookService) verifyReferences(ctx context.Context, book *model.Book) error {
	exists, err := s.userRepo.Exists(ctx, book.AuthorID)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return apperrors.Validation("Unknown author reference", map[string]any{"author_id": book.AuthorID})
		}
		return apperrors.Internal("Failed to verify author reference", err)
	}
	if !exists {
		return apperrors.Validation("Unknown author reference", map[string]any{"author_id": book.AuthorID})
	}

	if len(book.GenreIDs) == 0 {
		return nil
	}

	genres, err := s.genreRepo.FindByIDs(ctx, book.GenreIDs)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return apperrors.Validation("Unknown genre reference", map[string]any{"genre_ids": book.GenreIDs})
		}
		return apperrors.Internal("Failed to verify genre references", err)
	}
	if len(genres) != len(book.GenreIDs) {
		found := make(map[string]struct{}, len(genres))
		for _, g := range genres {
			found[g.ID] = struct{}{}
		}
		var missing []string
		for _, id := range book.GenreIDs {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return apperrors.Validation("Unknown genre reference", map[string]any{"genre_ids": missing})
	}

	return nil
}

func (s *bookService) mergeBookUpdates(existing *model.Book, updates *model.BookUpdate) *model.Book {
	merged := *existing

	if updates.Title != nil {
		merged.Title = *updates.Title
	}
	if updates.Price != nil {
		merged.Price = *updates.Price
	}
	if updates.Pages != nil {
		merged.Pages = *updates.Pages
	}
	if updates.AuthorID != nil {
		merged.AuthorID = *updates.AuthorID
	}
	if updates.GenreIDs != nil {
		merged.GenreIDs = *updates.GenreIDs
	}

	return &merged
}
