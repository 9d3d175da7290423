package content

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/humpahadi/humpahadi/internal/rbac"
)

var (
	// ErrNotFound indicates the item does not exist.
	ErrNotFound = errors.New("content: not found")
	// ErrDuplicateSlug indicates the slug is taken within the kind.
	ErrDuplicateSlug = errors.New("content: slug already used")
	// ErrUnknownKind indicates a kind outside the closed set.
	ErrUnknownKind = errors.New("content: unknown kind")
)

// Kind is a content collection. Each kind maps to the admin section of the same name.
type Kind string

// Content kinds.
const (
	KindDistricts            Kind = "districts"
	KindCulture              Kind = "culture"
	KindFood                 Kind = "food"
	KindTravel               Kind = "travel"
	KindGallery              Kind = "gallery"
	KindMarketplace          Kind = "marketplace"
	KindStories              Kind = "stories"
	KindCommunitySubmissions Kind = "community-submissions"
)

var kindTitles = map[Kind]string{
	KindDistricts:            "Districts",
	KindCulture:              "Culture",
	KindFood:                 "Food",
	KindTravel:               "Travel",
	KindGallery:              "Gallery",
	KindMarketplace:          "Marketplace",
	KindStories:              "Stories",
	KindCommunitySubmissions: "Community Submissions",
}

// Kinds lists every kind in navigation order.
func Kinds() []Kind {
	return []Kind{KindDistricts, KindCulture, KindFood, KindTravel, KindGallery, KindMarketplace, KindStories, KindCommunitySubmissions}
}

// ParseKind validates a kind taken from a URL.
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	if _, ok := kindTitles[k]; !ok {
		return "", ErrUnknownKind
	}
	return k, nil
}

// Title returns the display name of the kind.
func (k Kind) Title() string {
	return kindTitles[k]
}

// AdminPath returns the admin section prefix of the kind.
func (k Kind) AdminPath() string {
	return "/admin/" + string(k)
}

// Public reports whether published items of the kind appear on the site.
func (k Kind) Public() bool {
	return k != KindCommunitySubmissions
}

// Item is a piece of published or draft content.
type Item struct {
	ID        uuid.UUID     `json:"id"`
	Kind      Kind          `json:"kind"`
	Slug      string        `json:"slug"`
	Title     string        `json:"title"`
	Summary   string        `json:"summary"`
	Body      string        `json:"body"`
	ImageURL  string        `json:"image_url,omitempty"`
	Published bool          `json:"published"`
	AuthorID  uuid.NullUUID `json:"author_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ItemInput is the editable part of an item.
type ItemInput struct {
	Title     string `json:"title" validate:"required,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=120"`
	Summary   string `json:"summary" validate:"max=500"`
	Body      string `json:"body" validate:"max=100000"`
	ImageURL  string `json:"image_url" validate:"omitempty,url"`
	Published bool   `json:"published"`
}

// SubmissionInput is a public community submission.
type SubmissionInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Summary  string `json:"summary" validate:"max=500"`
	Body     string `json:"body" validate:"required,max=20000"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

// ListFilters narrows a listing.
type ListFilters struct {
	Kind          Kind
	PublishedOnly bool
	Limit         int
	Offset        int
}

func sortSections(sections []rbac.Section) {
	sort.Slice(sections, func(i, j int) bool { return sections[i].Prefix < sections[j].Prefix })
}
