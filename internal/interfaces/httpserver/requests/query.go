package requests

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"glowchat/internal/domain/query"
	"glowchat/internal/utils/platformerrors"
)

// GetCursorPaginationFromQuery parses limit/order/after query parameters.
// The after cursor is a public ID; findByLastID resolves it to the numeric
// primary key used for keyset pagination.
func GetCursorPaginationFromQuery(reqCtx *gin.Context, findByLastID func(string) (*uint, error)) (*query.Pagination, error) {
	limitStr := reqCtx.DefaultQuery("limit", "20")
	order := reqCtx.DefaultQuery("order", "desc")
	afterStr := reqCtx.DefaultQuery("after", "")
	if afterStr == "" {
		if cursor := reqCtx.Query("cursor"); cursor != "" {
			afterStr = cursor
		}
	}

	var limit *int
	if limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil || limitInt < 1 {
			return nil, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid limit number", nil, "8c4f2e91-6a7d-4b35-9e1c-3d8b5f2a7c64")
		}
		limit = &limitInt
	}

	var after *uint
	if afterStr != "" {
		if findByLastID != nil {
			lastID, err := findByLastID(afterStr)
			if err != nil {
				return nil, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid pagination cursor", err, "2e9a6d54-1f8b-4c72-b3e9-7a5c1d8f4b26")
			}
			after = lastID
		} else {
			parsedID, err := strconv.ParseUint(afterStr, 10, 64)
			if err != nil {
				return nil, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid pagination cursor", err, "6b3e8f12-9c5a-4d47-a8f3-1e7d4b9c2a58")
			}
			tempID := uint(parsedID)
			after = &tempID
		}
	}

	if order != "asc" && order != "desc" {
		return nil, platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "invalid order", nil, "4f7c1a85-3e9d-4b26-9c4f-8a2e6d1b5f93")
	}

	return &query.Pagination{
		Limit: limit,
		Order: order,
		After: after,
	}, nil
}
