package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

func (h *Handlers) handleListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.Themes.ListThemes(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, themes)
}

func (h *Handlers) handleCreateTheme(w http.ResponseWriter, r *http.Request) {
	var req CreateThemeRequest
	if err := bindJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	theme, err := h.Themes.CreateTheme(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, theme)
}

func (h *Handlers) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := bindJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	cat, err := h.Themes.CreateCategory(r.Context(), req.ThemeID, req.Name, req.Order)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, cat)
}

func (h *Handlers) handleListCategories(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("theme_id")
	if raw == "" {
		h.respondError(w, r, ValidationFailed("theme_id query parameter is required"))
		return
	}
	themeID, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(w, r, ValidationFailed("Invalid theme_id query parameter"))
		return
	}

	cats, err := h.Themes.ListCategories(r.Context(), themeID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, cats)
}
