package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paginationFor(t *testing.T, target string) (page, pageSize, offset int) {
	t.Helper()
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		page, pageSize, offset = parsePagination(c)
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return page, pageSize, offset
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"defaults", "/items", 1, 20, 0},
		{"explicit page", "/items?page=3&page_size=10", 3, 10, 20},
		{"zero page clamps to first", "/items?page=0", 1, 20, 0},
		{"negative size falls back", "/items?page_size=-5", 1, 20, 0},
		{"oversized page_size capped", "/items?page_size=5000", 1, 100, 0},
		{"garbage values fall back", "/items?page=abc&page_size=xyz", 1, 20, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, pageSize, offset := paginationFor(t, tc.target)
			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantSize, pageSize)
			assert.Equal(t, tc.wantOffset, offset)
		})
	}
}

func TestExtractSignature(t *testing.T) {
	app := fiber.New()
	var got string
	app.Post("/hook", func(c *fiber.Ctx) error {
		got = extractSignature(c)
		return c.SendStatus(fiber.StatusOK)
	})

	t.Run("primary header wins", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/hook", nil)
		req.Header.Set("X-PWA-Signature", "abc")
		req.Header.Set("X-Signature", "ignored")
		_, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "abc", got)
	})

	t.Run("fallback header used", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/hook", nil)
		req.Header.Set("X-Signature", "def")
		_, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "def", got)
	})

	t.Run("no header is empty", func(t *testing.T) {
		_, err := app.Test(httptest.NewRequest("POST", "/hook", nil))
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})
}

func TestValidationMessage(t *testing.T) {
	type subject struct {
		Name     string `validate:"required"`
		Currency string `validate:"len=3"`
	}
	err := validator.New().Struct(subject{Currency: "NGNX"})
	require.Error(t, err)

	msg := validationMessage(err)
	assert.Contains(t, msg, "name failed required")
	assert.Contains(t, msg, "currency failed len")
}
