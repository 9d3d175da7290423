package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/humpahadi/humpahadi/internal/platform/httpx"
	"github.com/humpahadi/humpahadi/internal/shared"
)

// Service applies content rules on top of the repository.
type Service struct {
	repo      Repository
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService creates a content service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validator: validator.New(), logger: logger}
}

// Page is one page of a listing.
type Page struct {
	Items      []Item            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// ListPublished returns published items of a public kind.
func (s *Service) ListPublished(ctx context.Context, kind Kind, page, perPage int) (Page, error) {
	if !kind.Public() {
		return Page{}, ErrUnknownKind
	}
	return s.list(ctx, kind, true, page, perPage)
}

// ListAll returns drafts and published items for the admin section.
func (s *Service) ListAll(ctx context.Context, kind Kind, page, perPage int) (Page, error) {
	return s.list(ctx, kind, false, page, perPage)
}

func (s *Service) list(ctx context.Context, kind Kind, publishedOnly bool, page, perPage int) (Page, error) {
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.List(ctx, ListFilters{Kind: kind, PublishedOnly: publishedOnly, Limit: p.PerPage, Offset: p.Offset()})
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []Item{}
	}
	return Page{Items: items, Pagination: shared.NewPagination(p.Page, p.PerPage, total)}, nil
}

// Published returns a single published item.
func (s *Service) Published(ctx context.Context, kind Kind, slug string) (Item, error) {
	if !kind.Public() {
		return Item{}, ErrNotFound
	}
	item, err := s.repo.GetBySlug(ctx, kind, slug)
	if err != nil {
		return Item{}, err
	}
	if !item.Published {
		return Item{}, ErrNotFound
	}
	return item, nil
}

// Create adds an item to a kind.
func (s *Service) Create(ctx context.Context, kind Kind, input ItemInput, author uuid.NullUUID) (Item, error) {
	if err := s.validate(&input); err != nil {
		return Item{}, err
	}
	item, err := s.repo.Create(ctx, Item{
		ID:        uuid.New(),
		Kind:      kind,
		Slug:      input.Slug,
		Title:     input.Title,
		Summary:   input.Summary,
		Body:      input.Body,
		ImageURL:  input.ImageURL,
		Published: input.Published,
		AuthorID:  author,
	})
	if err != nil {
		return Item{}, err
	}
	s.logger.Info("content created", slog.String("kind", string(kind)), slog.String("id", item.ID.String()))
	return item, nil
}

// Update replaces the editable fields of an item.
func (s *Service) Update(ctx context.Context, kind Kind, id uuid.UUID, input ItemInput) (Item, error) {
	if err := s.validate(&input); err != nil {
		return Item{}, err
	}
	current, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return Item{}, err
	}
	current.Slug = input.Slug
	current.Title = input.Title
	current.Summary = input.Summary
	current.Body = input.Body
	current.ImageURL = input.ImageURL
	current.Published = input.Published
	return s.repo.Update(ctx, current)
}

// SetPublished publishes or retracts an item.
func (s *Service) SetPublished(ctx context.Context, kind Kind, id uuid.UUID, published bool) (Item, error) {
	current, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return Item{}, err
	}
	current.Published = published
	return s.repo.Update(ctx, current)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	return s.repo.Delete(ctx, kind, id)
}

// Submit records a community submission awaiting moderation.
func (s *Service) Submit(ctx context.Context, input SubmissionInput, author uuid.NullUUID) (Item, error) {
	if err := s.validator.Struct(input); err != nil {
		return Item{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	base := Slugify(input.Title)
	if base == "" {
		base = "submission"
	}
	return s.Create(ctx, KindCommunitySubmissions, ItemInput{
		Title:    input.Title,
		Slug:     base + "-" + uuid.NewString()[:8],
		Summary:  input.Summary,
		Body:     input.Body,
		ImageURL: input.ImageURL,
	}, author)
}

func (s *Service) validate(input *ItemInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Slug = strings.TrimSpace(input.Slug)
	if input.Slug == "" {
		input.Slug = Slugify(input.Title)
	}
	if err := s.validator.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if input.Slug == "" || input.Slug != Slugify(input.Slug) {
		return fmt.Errorf("%w: slug must contain only lowercase letters, digits and dashes", httpx.ErrValidation)
	}
	return nil
}
