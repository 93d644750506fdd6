package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/repository"
)

const variantCount = 3

type VariantService interface {
	Generate(ctx context.Context, userID, productID string) ([]*models.ContentItem, error)
}

type variantService struct {
	cr         repository.ContentRepository
	rr         repository.RestaurantRepository
	store      ObjectStore
	generator  VariationGenerator
	compressor ImageCompressor
	llm        TextGenerator
}

func NewVariantService(
	cr repository.ContentRepository,
	rr repository.RestaurantRepository,
	store ObjectStore,
	generator VariationGenerator,
	compressor ImageCompressor,
	llm TextGenerator) VariantService {
	return &variantService{
		cr:         cr,
		rr:         rr,
		store:      store,
		generator:  generator,
		compressor: compressor,
		llm:        llm,
	}
}

// Generate turns one product into three new products, each with a generated
// image and a caption in a different style. Rows created before a failure
// are kept.
func (s *variantService) Generate(ctx context.Context, userID, productID string) ([]*models.ContentItem, error) {
	product, err := s.cr.GetByID(ctx, models.ContentKindProduct, productID, userID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}

	rest, err := s.rr.GetByOwnerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rest == nil {
		return nil, validationError("create your restaurant profile before generating variants")
	}

	original, err := s.store.Download(ctx, product.DisplayPath())
	if err != nil {
		return nil, err
	}
	fileType, err := DetectFileType(original)
	if err != nil {
		return nil, err
	}
	if mediaTypeOf(fileType) != models.MediaTypePhoto {
		return nil, validationError("variants can only be generated from images")
	}

	images, err := s.generator.GenerateVariations(ctx, original, fileType.MIME.Value, variationPrompt(product), variantCount)
	if err != nil {
		return nil, upstreamError("image generation", err)
	}
	if len(images) != variantCount {
		return nil, upstreamError("image generation", fmt.Errorf("expected %d variations, got %d", variantCount, len(images)))
	}

	captions := generateStyledCaptions(ctx, s.llm, BuildCaptionPrompt(rest, product))

	created := make([]*models.ContentItem, 0, len(images))
	for i, image := range images {
		item, err := s.createVariant(ctx, product, image, captions[i], i)
		if err != nil {
			return created, err
		}
		created = append(created, item)
	}

	if err := s.cr.SetEnhancementStatus(ctx, models.ContentKindProduct, productID, userID, models.EnhancementCompletedMultiple); err != nil {
		return created, err
	}

	slog.Info("product variants created", "product_id", productID, "count", len(created))
	return created, nil
}

func (s *variantService) createVariant(ctx context.Context, product *models.ContentItem, image []byte, caption string, index int) (*models.ContentItem, error) {
	fileType, err := DetectFileType(image)
	if err != nil {
		return nil, fmt.Errorf("variant %d: %w", index+1, err)
	}

	image = compressOrOriginal(ctx, s.compressor, image)

	path, err := NewObjectPath(product.OwnerID, "variant-", fileType.Extension)
	if err != nil {
		return nil, err
	}
	if err := s.store.Upload(ctx, path, image, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("variant %d: %w", index+1, err)
	}

	item := &models.ContentItem{
		Kind:                   models.ContentKindProduct,
		OwnerID:                product.OwnerID,
		ImagePath:              path,
		EnhancedImagePath:      &path,
		ImageEnhancementStatus: models.EnhancementCompleted,
		SelectedVersion:        models.VersionEnhanced,
		Caption:                optionalString(caption),
		MediaType:              models.MediaTypePhoto,
		Name:                   fmt.Sprintf("%s (variant %d)", product.Name, index+1),
		Price:                  product.Price,
		Description:            product.Description,
		Category:               product.Category,
		IsNew:                  true,
		TiktokSettings:         product.TiktokSettings,
	}

	id, err := s.cr.Create(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("variant %d: %w", index+1, err)
	}
	item.ID = id
	item.Status = models.ContentStatusDraft
	item.ImageURL = s.store.PublicURL(path)
	item.EnhancedImageURL = item.ImageURL
	return item, nil
}

func variationPrompt(product *models.ContentItem) string {
	prompt := fmt.Sprintf("Professional food photography of %s, appetizing lighting, social media ready", product.Name)
	if product.Description != nil && *product.Description != "" {
		prompt += ". " + *product.Description
	}
	return prompt
}
