package grievance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

func marksSubmission(details map[string]string) Submission {
	return Submission{
		Category:    models.CategoryExamination,
		SubCategory: "Marks Related",
		Title:       "Wrong marks",
		Description: "Total does not add up",
		Details:     details,
	}
}

func requireFieldError(t *testing.T, err error, sentinel *appErrors.Error, field string) {
	t.Helper()
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, field, appErrors.FromError(err).Field)
}

func TestValidatorMissingExamName(t *testing.T) {
	v := NewValidator(nil, nil)
	_, err := v.Validate(marksSubmission(map[string]string{
		"subjectName": "Algorithms",
		"courseCode":  "CS201",
		"issueType":   "Wrong total",
	}))
	requireFieldError(t, err, appErrors.ErrMissingRequiredField, "examName")
}

func TestValidatorAcceptsMarksRelated(t *testing.T) {
	v := NewValidator(nil, nil)
	result, err := v.Validate(marksSubmission(map[string]string{
		"subjectName": "Algorithms",
		"examName":    "Midterm",
		"courseCode":  "CS201",
		"issueType":   "Wrong total",
		"favourite":   "pizza",
	}))
	require.NoError(t, err)
	assert.Equal(t, models.Details{
		"subjectName": "Algorithms",
		"examName":    "Midterm",
		"courseCode":  "CS201",
		"issueType":   "Wrong total",
	}, result.Details)
}

func TestValidatorEveryMissingRequiredFieldIsNamed(t *testing.T) {
	reg := DefaultRegistry()
	v := NewValidator(reg, nil)
	for _, category := range reg.Categories() {
		for _, sub := range reg.SubCategoriesFor(category) {
			schema, err := reg.SchemaFor(category, sub)
			require.NoError(t, err)

			complete := make(map[string]string)
			for _, f := range schema.Fields {
				complete[f.Key] = sampleValue(f)
			}
			_, err = v.Validate(Submission{Category: category, SubCategory: sub, Title: "t", Description: "d", Details: complete})
			require.NoError(t, err, "%s/%s", category, sub)

			for _, key := range schema.RequiredKeys() {
				partial := make(map[string]string, len(complete))
				for k, val := range complete {
					if k != key {
						partial[k] = val
					}
				}
				_, err := v.Validate(Submission{Category: category, SubCategory: sub, Title: "t", Description: "d", Details: partial})
				requireFieldError(t, err, appErrors.ErrMissingRequiredField, key)
			}
		}
	}
}

func sampleValue(f FieldDescriptor) string {
	switch f.Kind {
	case KindEnum:
		return f.EnumValues[0]
	case KindDate:
		return "2024-03-15"
	default:
		return "x"
	}
}

func TestValidatorFailFastOrder(t *testing.T) {
	v := NewValidator(nil, nil)
	cases := []struct {
		name     string
		sub      Submission
		sentinel *appErrors.Error
		field    string
	}{
		{
			name:     "unknown category wins over everything",
			sub:      Submission{Category: "sports", SubCategory: "", Title: ""},
			sentinel: appErrors.ErrUnknownCategory,
			field:    "category",
		},
		{
			name:     "sub-category from another category",
			sub:      Submission{Category: models.CategoryPlacement, SubCategory: "WiFi", Title: "t", Description: "d"},
			sentinel: appErrors.ErrUnknownSubCategory,
			field:    "subCategory",
		},
		{
			name:     "blank title before details",
			sub:      Submission{Category: models.CategoryFacility, SubCategory: "WiFi", Title: "  ", Description: "d"},
			sentinel: appErrors.ErrMissingRequiredField,
			field:    "title",
		},
		{
			name:     "blank description",
			sub:      Submission{Category: models.CategoryOther, SubCategory: "General", Title: "t", Description: "\n"},
			sentinel: appErrors.ErrMissingRequiredField,
			field:    "description",
		},
		{
			name: "first field in schema order",
			sub: Submission{Category: models.CategoryFacility, SubCategory: "WiFi", Title: "t", Description: "d",
				Details: map[string]string{"location": "Lab 2"}},
			sentinel: appErrors.ErrMissingRequiredField,
			field:    "building",
		},
		{
			name: "whitespace value counts as missing",
			sub: Submission{Category: models.CategoryPlacement, SubCategory: "Placement Cell Support", Title: "t", Description: "d",
				Details: map[string]string{"issueType": "   "}},
			sentinel: appErrors.ErrMissingRequiredField,
			field:    "issueType",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.sub)
			requireFieldError(t, err, tc.sentinel, tc.field)
		})
	}
}

func TestValidatorKindChecks(t *testing.T) {
	v := NewValidator(nil, nil)
	clash := func(details map[string]string) Submission {
		return Submission{Category: models.CategoryAcademic, SubCategory: "Time-Table Clash", Title: "t", Description: "d", Details: details}
	}

	_, err := v.Validate(clash(map[string]string{"clashType": "Seminar", "clashingSubjects": "DBMS, OS", "dateOfClash": "2024-03-15"}))
	requireFieldError(t, err, appErrors.ErrInvalidFieldValue, "clashType")

	_, err = v.Validate(clash(map[string]string{"clashType": "Lab", "clashingSubjects": "DBMS, OS", "dateOfClash": "15/03/2024"}))
	requireFieldError(t, err, appErrors.ErrInvalidFieldValue, "dateOfClash")

	_, err = v.Validate(clash(map[string]string{"clashType": "Lab", "clashingSubjects": "DBMS, OS", "dateOfClash": "2024-02-30"}))
	requireFieldError(t, err, appErrors.ErrInvalidFieldValue, "dateOfClash")

	ok, err := v.Validate(clash(map[string]string{"clashType": "Internal Exam", "clashingSubjects": "DBMS, OS", "dateOfClash": " 2024-03-15 "}))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", ok.Details["dateOfClash"])
}

func TestValidatorSharedRuleAppliesEverywhere(t *testing.T) {
	v := NewValidator(nil, nil)
	long := make([]byte, 121)
	for i := range long {
		long[i] = 'a'
	}
	_, err := v.Validate(Submission{Category: models.CategoryFacility, SubCategory: "Canteen", Title: "t", Description: "d",
		Details: map[string]string{"location": "Block A", "issueType": string(long)}})
	requireFieldError(t, err, appErrors.ErrInvalidFieldValue, "issueType")

	_, err = v.Validate(Submission{Category: models.CategoryPlacement, SubCategory: "Placement Cell Support", Title: "t", Description: "d",
		Details: map[string]string{"issueType": string(long)}})
	requireFieldError(t, err, appErrors.ErrInvalidFieldValue, "issueType")
}

func TestValidatorOptionalFields(t *testing.T) {
	v := NewValidator(nil, nil)
	result, err := v.Validate(Submission{Category: models.CategoryFacility, SubCategory: "Library", Title: "t", Description: "d",
		Details: map[string]string{"issueType": "Book missing", "bookName": ""}})
	require.NoError(t, err)
	_, present := result.Details["bookName"]
	assert.False(t, present)

	result, err = v.Validate(Submission{Category: models.CategoryFacility, SubCategory: "Library", Title: "t", Description: "d",
		Details: map[string]string{"issueType": "Book missing", "bookName": "SICP"}})
	require.NoError(t, err)
	assert.Equal(t, "SICP", result.Details["bookName"])
}

func TestValidatorSwitchingSubCategoryDropsStaleDetails(t *testing.T) {
	v := NewValidator(nil, nil)
	result, err := v.Validate(Submission{Category: models.CategoryFacility, SubCategory: "Canteen", Title: "t", Description: "d",
		Details: map[string]string{"building": "B1", "floor": "2", "location": "Food court", "issueType": "Hygiene"}})
	require.NoError(t, err)
	assert.Equal(t, models.Details{"location": "Food court", "issueType": "Hygiene"}, result.Details)
}

func TestValidatorTrimsTitleAndDescription(t *testing.T) {
	v := NewValidator(nil, nil)
	result, err := v.Validate(Submission{Category: models.CategoryOther, SubCategory: "General", Title: "  Noise  ", Description: " Loud music at night "})
	require.NoError(t, err)
	assert.Equal(t, "Noise", result.Title)
	assert.Equal(t, "Loud music at night", result.Description)
	assert.Empty(t, result.Details)
}
