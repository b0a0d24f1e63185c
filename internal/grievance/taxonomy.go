// Package grievance holds the classification and lifecycle rules for grievances:
// the taxonomy of categories and their field schemas, submission validation,
// identifier assignment, status transitions and role-scoped visibility.
//
// Everything here is pure decision logic; storage and identity are supplied by
// callers.
package grievance

import (
	"fmt"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// FieldKind describes how a detail value is interpreted.
type FieldKind string

const (
	KindText FieldKind = "text"
	KindDate FieldKind = "date"
	KindEnum FieldKind = "enum"
)

// DateLayout is the calendar date format accepted for date fields.
const DateLayout = "2006-01-02"

// FieldDescriptor describes one structured detail captured for a sub-category.
type FieldDescriptor struct {
	Key        string    `json:"key"`
	Label      string    `json:"label"`
	Kind       FieldKind `json:"kind"`
	Required   bool      `json:"required"`
	EnumValues []string  `json:"enumValues,omitempty"`
	// Rule is a validator tag applied to non-blank values, e.g. "max=120".
	Rule string `json:"rule,omitempty"`
}

// Optional returns a copy of the descriptor that is not required.
func (f FieldDescriptor) Optional() FieldDescriptor {
	f.Required = false
	return f
}

// FieldSchema is the ordered set of descriptors for a (category, sub-category) pair.
type FieldSchema struct {
	Category    models.GrievanceCategory `json:"category"`
	SubCategory string                   `json:"subCategory"`
	Fields      []FieldDescriptor        `json:"fields"`
}

// RequiredKeys lists the keys that must be supplied, in schema order.
func (s FieldSchema) RequiredKeys() []string {
	keys := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Field looks up a descriptor by key.
func (s FieldSchema) Field(key string) (FieldDescriptor, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

func text(key, label string) FieldDescriptor {
	return FieldDescriptor{Key: key, Label: label, Kind: KindText, Required: true, Rule: "max=200"}
}

func date(key, label string) FieldDescriptor {
	return FieldDescriptor{Key: key, Label: label, Kind: KindDate, Required: true}
}

// Canonical descriptors shared between sub-categories. Every schema that
// captures the concept references the same value.
var (
	FieldSubjectName      = text("subjectName", "Subject Name")
	FieldBuilding         = text("building", "Building")
	FieldFloor            = text("floor", "Floor")
	FieldLocation         = text("location", "Location")
	FieldIssueType        = FieldDescriptor{Key: "issueType", Label: "Issue Type", Kind: KindText, Required: true, Rule: "max=120"}
	FieldCompanyName      = text("companyName", "Company Name")
	FieldCourseCode       = FieldDescriptor{Key: "courseCode", Label: "Course Code", Kind: KindText, Required: true, Rule: "max=32"}
	FieldExamName         = text("examName", "Exam Name")
	FieldRoomNo           = FieldDescriptor{Key: "roomNo", Label: "Room Number", Kind: KindText, Required: true, Rule: "max=32"}
	FieldClashingSubjects = text("clashingSubjects", "Clashing Subjects (comma-separated)")
	FieldExamDate         = date("examDate", "Exam Date")
)

// Descriptors used by a single sub-category.
var (
	fieldFacultyName         = text("facultyName", "Faculty Name")
	fieldClashType           = FieldDescriptor{Key: "clashType", Label: "Clash Type", Kind: KindEnum, Required: true, EnumValues: []string{"Lecture", "Lab", "Internal Exam"}}
	fieldDateOfClash         = date("dateOfClash", "Date of Clash")
	fieldLabNameOrNumber     = text("labNameOrNumber", "Lab Name or Number")
	fieldEquipmentOrSoftware = text("equipmentOrSoftware", "Equipment or Software")
	fieldItem                = text("item", "Item (e.g., Projector, Fan, etc.)")
	fieldHostelName          = text("hostelName", "Hostel Name")
	fieldBookName            = text("bookName", "Book Name (if applicable)").Optional()
	fieldQuestionNumber      = FieldDescriptor{Key: "questionNumber", Label: "Question Number (optional)", Kind: KindText, Rule: "max=16"}
	fieldReason              = text("reason", "Reason")
	fieldSemester            = FieldDescriptor{Key: "semester", Label: "Semester", Kind: KindText, Required: true, Rule: "max=32"}
	fieldExpectedDate        = date("expectedDate", "Expected Date")
	fieldInvigilatorName     = text("invigilatorName", "Invigilator Name (optional)").Optional()
	fieldCriteriaInDispute   = text("criteriaInDispute", "Criteria in Dispute")
	fieldDocumentType        = text("documentType", "Document Type")
)

type subCategoryEntry struct {
	name   string
	fields []FieldDescriptor
}

type categoryEntry struct {
	category      models.GrievanceCategory
	subCategories []subCategoryEntry
}

// taxonomy is the declarative rule table keyed by category then sub-category.
var taxonomy = []categoryEntry{
	{category: models.CategoryAcademic, subCategories: []subCategoryEntry{
		{"Teaching Quality", []FieldDescriptor{FieldSubjectName, fieldFacultyName, FieldIssueType}},
		{"Syllabus", []FieldDescriptor{FieldSubjectName, FieldCourseCode, FieldIssueType}},
		{"Time-Table Clash", []FieldDescriptor{fieldClashType, FieldClashingSubjects, fieldDateOfClash}},
		{"Lab/Equipment", []FieldDescriptor{fieldLabNameOrNumber, fieldEquipmentOrSoftware, FieldIssueType}},
	}},
	{category: models.CategoryFacility, subCategories: []subCategoryEntry{
		{"Classroom Infrastructure", []FieldDescriptor{FieldBuilding, FieldRoomNo, fieldItem}},
		{"WiFi", []FieldDescriptor{FieldBuilding, FieldFloor, FieldLocation}},
		{"Water Supply", []FieldDescriptor{FieldBuilding, FieldFloor, FieldLocation, FieldIssueType}},
		{"Restrooms", []FieldDescriptor{FieldBuilding, FieldFloor, FieldLocation, FieldIssueType}},
		{"Canteen", []FieldDescriptor{FieldLocation, FieldIssueType}},
		{"Hostel", []FieldDescriptor{fieldHostelName, FieldRoomNo, FieldIssueType}},
		{"Library", []FieldDescriptor{FieldIssueType, fieldBookName}},
		{"Parking", []FieldDescriptor{FieldLocation, FieldIssueType}},
	}},
	{category: models.CategoryExamination, subCategories: []subCategoryEntry{
		{"Marks Related", []FieldDescriptor{FieldSubjectName, FieldCourseCode, FieldExamName, FieldIssueType, fieldQuestionNumber}},
		{"Exam Scheduling", []FieldDescriptor{FieldIssueType, FieldClashingSubjects, FieldExamDate}},
		{"Exam Not Given", []FieldDescriptor{FieldSubjectName, FieldExamDate, fieldReason}},
		{"Results Delay", []FieldDescriptor{FieldExamName, fieldSemester, fieldExpectedDate}},
		{"Invigilation/Conduct", []FieldDescriptor{FieldExamName, FieldRoomNo, fieldInvigilatorName}},
	}},
	{category: models.CategoryPlacement, subCategories: []subCategoryEntry{
		{"Eligibility Issues", []FieldDescriptor{FieldCompanyName, fieldCriteriaInDispute}},
		{"Company Opportunity", []FieldDescriptor{FieldCompanyName, FieldIssueType}},
		{"Documentation", []FieldDescriptor{fieldDocumentType, FieldIssueType}},
		{"Placement Cell Support", []FieldDescriptor{FieldIssueType}},
		{"Interview Process", []FieldDescriptor{FieldCompanyName, FieldIssueType}},
	}},
	{category: models.CategoryOther, subCategories: []subCategoryEntry{
		{"General", nil},
	}},
}

// Registry answers taxonomy lookups. It is immutable once built.
type Registry struct {
	categories []models.GrievanceCategory
	subs       map[models.GrievanceCategory][]string
	schemas    map[models.GrievanceCategory]map[string]FieldSchema
}

var defaultRegistry = newRegistry(taxonomy)

// DefaultRegistry returns the registry built from the institution taxonomy.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

func newRegistry(entries []categoryEntry) *Registry {
	r := &Registry{
		subs:    make(map[models.GrievanceCategory][]string, len(entries)),
		schemas: make(map[models.GrievanceCategory]map[string]FieldSchema, len(entries)),
	}
	for _, entry := range entries {
		if _, dup := r.schemas[entry.category]; dup {
			panic(fmt.Sprintf("grievance: duplicate category %q", entry.category))
		}
		r.categories = append(r.categories, entry.category)
		byName := make(map[string]FieldSchema, len(entry.subCategories))
		names := make([]string, 0, len(entry.subCategories))
		for _, sub := range entry.subCategories {
			if _, dup := byName[sub.name]; dup {
				panic(fmt.Sprintf("grievance: duplicate sub-category %q in %q", sub.name, entry.category))
			}
			fields := make([]FieldDescriptor, len(sub.fields))
			copy(fields, sub.fields)
			byName[sub.name] = FieldSchema{Category: entry.category, SubCategory: sub.name, Fields: fields}
			names = append(names, sub.name)
		}
		r.subs[entry.category] = names
		r.schemas[entry.category] = byName
	}
	return r
}

// Categories returns every recognised category in display order.
func (r *Registry) Categories() []models.GrievanceCategory {
	out := make([]models.GrievanceCategory, len(r.categories))
	copy(out, r.categories)
	return out
}

// IsCategory reports whether the category is part of the taxonomy.
func (r *Registry) IsCategory(category models.GrievanceCategory) bool {
	_, ok := r.schemas[category]
	return ok
}

// SubCategoriesFor returns the ordered sub-categories for category. Unknown
// categories yield an empty slice. Each call returns a fresh copy.
func (r *Registry) SubCategoriesFor(category models.GrievanceCategory) []string {
	names := r.subs[category]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// SchemaFor resolves the field schema for a (category, sub-category) pair.
func (r *Registry) SchemaFor(category models.GrievanceCategory, subCategory string) (FieldSchema, error) {
	byName, ok := r.schemas[category]
	if !ok {
		return FieldSchema{}, appErrors.WithField(appErrors.ErrUnknownCategory, "category", fmt.Sprintf("unknown category %q", category))
	}
	schema, ok := byName[subCategory]
	if !ok {
		return FieldSchema{}, appErrors.WithField(appErrors.ErrUnknownSubCategory, "subCategory", fmt.Sprintf("unknown sub-category %q for %s", subCategory, category))
	}
	fields := make([]FieldDescriptor, len(schema.Fields))
	for i, f := range schema.Fields {
		f.EnumValues = append([]string(nil), f.EnumValues...)
		fields[i] = f
	}
	schema.Fields = fields
	return schema, nil
}
