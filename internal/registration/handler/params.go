package handler

import (
	"net/http"
	"strconv"

	"registrar/internal/registration/models"
)

// listParamsFromQuery reads the listing query parameters. Unparsable numbers
// fall back to zero and get clamped by normalization downstream.
func listParamsFromQuery(r *http.Request) models.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return models.ListParams{
		ProgramID: q.Get("programId"),
		Search:    q.Get("search"),
		Page:      page,
		Limit:     limit,
	}
}
