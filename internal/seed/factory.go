// Package seed creates demo menu content for local development.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/maheshrc27/captionflow/internal/models"
)

// ContentWriter is the subset of the content repository the factory needs.
type ContentWriter interface {
	Create(ctx context.Context, item *models.ContentItem) (string, error)
}

type Options struct {
	Products int
	Images   int
	// CaptionRatio is the share of items created with a caption already set,
	// so they are eligible for automatic scheduling right away.
	CaptionRatio float64
	DryRun       bool
	Seed         int64
}

var categories = []string{"starters", "mains", "desserts", "drinks", "specials"}

// Factory builds content items and persists them. Items reference
// placeholder object paths; real images are uploaded through the API.
type Factory struct {
	w      ContentWriter
	opts   Options
	faker  *gofakeit.Faker
	nextID int
}

func NewFactory(w ContentWriter, opts Options) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{w: w, opts: opts, faker: gofakeit.New(seed), nextID: 1000}
}

// BuildProduct returns a menu item owned by ownerID without persisting it.
func (f *Factory) BuildProduct(ownerID string) *models.ContentItem {
	price := float64(int(f.faker.Price(4, 40)*100)) / 100
	description := f.faker.Sentence(10)
	category := f.faker.RandomString(categories)

	item := &models.ContentItem{
		Kind:                   models.ContentKindProduct,
		OwnerID:                ownerID,
		ImagePath:              fmt.Sprintf("%s/seed-%s.jpg", ownerID, f.faker.UUID()),
		ImageEnhancementStatus: models.EnhancementNone,
		SelectedVersion:        models.VersionOriginal,
		MediaType:              models.MediaTypePhoto,
		Name:                   f.dish(),
		Price:                  &price,
		Description:            &description,
		Category:               &category,
		IsNew:                  true,
	}
	f.maybeCaption(item)
	return item
}

// BuildImage returns a general restaurant photo owned by ownerID.
func (f *Factory) BuildImage(ownerID string) *models.ContentItem {
	item := &models.ContentItem{
		Kind:                   models.ContentKindImage,
		OwnerID:                ownerID,
		ImagePath:              fmt.Sprintf("%s/seed-%s.jpg", ownerID, f.faker.UUID()),
		ImageEnhancementStatus: models.EnhancementNone,
		SelectedVersion:        models.VersionOriginal,
		MediaType:              models.MediaTypePhoto,
		Name:                   f.faker.Word() + ".jpg",
	}
	f.maybeCaption(item)
	return item
}

func (f *Factory) dish() string {
	switch f.faker.Number(0, 3) {
	case 0:
		return f.faker.Breakfast()
	case 1:
		return f.faker.Lunch()
	case 2:
		return f.faker.Dinner()
	default:
		return f.faker.Dessert()
	}
}

func (f *Factory) maybeCaption(item *models.ContentItem) {
	if f.faker.Float64Range(0, 1) >= f.opts.CaptionRatio {
		return
	}
	caption := fmt.Sprintf("%s %s #foodie #%s", f.faker.HipsterSentence(8), f.faker.Emoji(), f.faker.Word())
	item.Caption = &caption
}

// Run creates the configured number of products and images for ownerID
// and returns them with their ids set.
func (f *Factory) Run(ctx context.Context, ownerID string) ([]*models.ContentItem, error) {
	items := make([]*models.ContentItem, 0, f.opts.Products+f.opts.Images)
	for i := 0; i < f.opts.Products; i++ {
		items = append(items, f.BuildProduct(ownerID))
	}
	for i := 0; i < f.opts.Images; i++ {
		items = append(items, f.BuildImage(ownerID))
	}

	for _, item := range items {
		if f.opts.DryRun {
			item.ID = fmt.Sprintf("dry-%d", f.nextID)
			f.nextID++
			continue
		}
		id, err := f.w.Create(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("error creating %s %q: %w", item.Kind, item.Name, err)
		}
		item.ID = id
	}

	slog.Info("seeded content", "owner_id", ownerID, "products", f.opts.Products, "images", f.opts.Images, "dry_run", f.opts.DryRun)
	return items, nil
}
