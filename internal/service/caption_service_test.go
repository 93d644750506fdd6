package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func burgerFixture() (*contentRepoStub, *restaurantRepoStub) {
	price := 25.0
	burger := &models.ContentItem{
		ID: "p1", Kind: models.ContentKindProduct, OwnerID: "u1", Name: "Burger",
		Price: &price, Description: strPtr("Double patty"), ImagePath: "u1/burger.jpg",
	}
	rest := &models.Restaurant{ID: "r1", OwnerID: "u1", Name: "Joe's Diner", BrandType: "restaurant", Category: "American"}
	return newContentRepoStub(burger), &restaurantRepoStub{rest: rest}
}

func TestCaptionService_Generate_StoresCaptionAndSpendsCredit(t *testing.T) {
	cr, rr := burgerFixture()
	profiles := &profileRepoStub{credits: 3}
	var prompt string
	llm := &llmStub{fn: func(p string, _ float64) (string, error) {
		prompt = p
		return "Stacked high! #burger #joesdiner", nil
	}}

	s := NewCaptionService(cr, rr, profiles, llm)

	caption, err := s.Generate(context.Background(), "u1", models.ContentKindProduct, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Stacked high! #burger #joesdiner", caption)
	assert.Equal(t, 2, profiles.credits)
	assert.Equal(t, 0, profiles.refunds)
	assert.Equal(t, caption, *cr.get(models.ContentKindProduct, "p1").Caption)

	assert.Contains(t, prompt, "Joe's Diner")
	assert.Contains(t, prompt, "Product: Burger")
	assert.Contains(t, prompt, "Price: 25.00")
	assert.Equal(t, []float64{defaultCaptionTemperature}, llm.calls)
}

func TestCaptionService_Generate_RefundsOnLLMFailure(t *testing.T) {
	cr, rr := burgerFixture()
	profiles := &profileRepoStub{credits: 1}
	llm := &llmStub{fn: func(string, float64) (string, error) { return "", errors.New("rate limited") }}

	s := NewCaptionService(cr, rr, profiles, llm)

	_, err := s.Generate(context.Background(), "u1", models.ContentKindProduct, "p1")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 1, profiles.credits)
	assert.Equal(t, 1, profiles.refunds)
	assert.Nil(t, cr.get(models.ContentKindProduct, "p1").Caption)
}

func TestCaptionService_Generate_RefundsOnWriteFailure(t *testing.T) {
	cr, rr := burgerFixture()
	cr.setErr = errors.New("deadlock detected")
	profiles := &profileRepoStub{credits: 2}
	llm := &llmStub{fn: func(string, float64) (string, error) { return "Yum", nil }}

	s := NewCaptionService(cr, rr, profiles, llm)

	_, err := s.Generate(context.Background(), "u1", models.ContentKindProduct, "p1")
	assert.Error(t, err)
	assert.Equal(t, 2, profiles.credits)
	assert.Equal(t, 1, profiles.refunds)
}

func TestCaptionService_Generate_InsufficientCredits(t *testing.T) {
	cr, rr := burgerFixture()
	profiles := &profileRepoStub{credits: 0}
	llm := &llmStub{fn: func(string, float64) (string, error) { return "never", nil }}

	s := NewCaptionService(cr, rr, profiles, llm)

	_, err := s.Generate(context.Background(), "u1", models.ContentKindProduct, "p1")
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Empty(t, llm.calls)
}

func TestCaptionService_Generate_RequiresRestaurantAndItem(t *testing.T) {
	cr, _ := burgerFixture()
	profiles := &profileRepoStub{credits: 5}
	llm := &llmStub{fn: func(string, float64) (string, error) { return "x", nil }}

	s := NewCaptionService(cr, &restaurantRepoStub{}, profiles, llm)
	_, err := s.Generate(context.Background(), "u1", models.ContentKindProduct, "p1")
	assert.ErrorIs(t, err, ErrValidation)

	_, rr := burgerFixture()
	s = NewCaptionService(cr, rr, profiles, llm)
	_, err = s.Generate(context.Background(), "u1", models.ContentKindProduct, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 5, profiles.credits)
}

func TestCaptionService_GenerateMultiple_OneCreditThreeStyles(t *testing.T) {
	cr, rr := burgerFixture()
	profiles := &profileRepoStub{credits: 1}
	llm := &llmStub{fn: func(p string, _ float64) (string, error) {
		for _, style := range captionStyles {
			if strings.Contains(p, "Style: "+style.Name) {
				return style.Name + " caption", nil
			}
		}
		return "", errors.New("no style")
	}}

	s := NewCaptionService(cr, rr, profiles, llm)

	captions, err := s.GenerateMultiple(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"enthusiastic caption", "elegant caption", "friendly caption"}, captions)
	assert.Equal(t, 0, profiles.credits)
	assert.ElementsMatch(t, []float64{0.8, 0.7, 0.75}, llm.calls)
	assert.Nil(t, cr.get(models.ContentKindProduct, "p1").Caption)
}

func TestCaptionService_GenerateMultiple_PartialAndTotalFailure(t *testing.T) {
	cr, rr := burgerFixture()
	profiles := &profileRepoStub{credits: 2}
	partial := &llmStub{fn: func(p string, _ float64) (string, error) {
		if strings.Contains(p, "Style: elegant") {
			return "", errors.New("timeout")
		}
		return "ok", nil
	}}

	captions, err := NewCaptionService(cr, rr, profiles, partial).GenerateMultiple(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.Len(t, captions, 2)
	assert.Equal(t, 1, profiles.credits)

	failing := &llmStub{fn: func(string, float64) (string, error) { return "", errors.New("down") }}
	_, err = NewCaptionService(cr, rr, profiles, failing).GenerateMultiple(context.Background(), "u1", "p1")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 1, profiles.credits)
	assert.Equal(t, 1, profiles.refunds)
}

func TestCaptionService_ClearCaption(t *testing.T) {
	cr, rr := burgerFixture()
	cr.get(models.ContentKindProduct, "p1").Caption = strPtr("old")

	s := NewCaptionService(cr, rr, &profileRepoStub{}, &llmStub{})

	require.NoError(t, s.ClearCaption(context.Background(), "u1", models.ContentKindProduct, "p1"))
	assert.Nil(t, cr.get(models.ContentKindProduct, "p1").Caption)

	err := s.ClearCaption(context.Background(), "u2", models.ContentKindProduct, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}
