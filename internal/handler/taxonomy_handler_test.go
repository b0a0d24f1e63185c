package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/grievance"
	"github.com/noah-isme/grievance-api/internal/service"
)

func TestTaxonomyHandlerList(t *testing.T) {
	h := NewTaxonomyHandler(service.NewGrievanceService(nil, nil, nil))
	c, w := newContext(http.MethodGet, "/taxonomy", nil, studentClaims)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	var categories []dto.TaxonomyCategory
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &categories))
	require.Len(t, categories, 5)
	assert.Equal(t, "Teaching Quality", categories[0].SubCategories[0].SubCategory)
}

func TestTaxonomyHandlerSchema(t *testing.T) {
	h := NewTaxonomyHandler(service.NewGrievanceService(nil, nil, nil))

	c, w := newContext(http.MethodGet, "/taxonomy/examination/Marks%20Related", nil, studentClaims)
	c.Params = gin.Params{{Key: "category", Value: "examination"}, {Key: "subCategory", Value: "/Marks Related"}}
	h.Schema(c)
	require.Equal(t, http.StatusOK, w.Code)
	var schema grievance.FieldSchema
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &schema))
	assert.Equal(t, []string{"subjectName", "courseCode", "examName", "issueType"}, schema.RequiredKeys())

	c, w = newContext(http.MethodGet, "/taxonomy/sports/Football", nil, studentClaims)
	c.Params = gin.Params{{Key: "category", Value: "sports"}, {Key: "subCategory", Value: "/Football"}}
	h.Schema(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_CATEGORY", decode(t, w).Error.Code)
}

func TestTaxonomyHandlerSchemaWithSlash(t *testing.T) {
	h := NewTaxonomyHandler(service.NewGrievanceService(nil, nil, nil))

	c, w := newContext(http.MethodGet, "/taxonomy/academic/Lab/Equipment", nil, studentClaims)
	c.Params = gin.Params{{Key: "category", Value: "academic"}, {Key: "subCategory", Value: "/Lab/Equipment"}}
	h.Schema(c)
	require.Equal(t, http.StatusOK, w.Code)
	var schema grievance.FieldSchema
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &schema))
	assert.Equal(t, "Lab/Equipment", schema.SubCategory)
}
