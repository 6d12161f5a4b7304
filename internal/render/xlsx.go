// Package render turns a finished recipe list into the downloadable plan workbook.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/storage"
	"github.com/xuri/excelize/v2"
)

const (
	overviewSheet = "Overview"
	otherSheet    = "Other"
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var mealSheets = []struct {
	mealType domain.MealType
	sheet    string
}{
	{domain.MealTypeDinner, "Dinners"},
	{domain.MealTypeBreakfast, "Breakfasts"},
	{domain.MealTypeDessert, "Desserts"},
}

var recipeHeaders = []string{
	"#", "Recipe", "Description", "Ingredients", "Instructions",
	"Servings", "Calories", "Protein (g)", "Carbs (g)", "Fat (g)", "Image", "Source",
}

// RenderRequest is everything that goes into one plan document.
type RenderRequest struct {
	CustomerEmail string
	ProductName   string
	PaymentRef    string
	DietPlanID    string
	DietType      string
	FamilySize    int
	Recipes       []domain.Recipe
}

// Renderer writes plan workbooks to object storage.
type Renderer struct {
	storage storage.ObjectStorage
	now     func() time.Time
}

// NewRenderer creates a renderer that uploads to objectStorage.
func NewRenderer(objectStorage storage.ObjectStorage) *Renderer {
	return &Renderer{storage: objectStorage, now: time.Now}
}

// Render builds the workbook, uploads it and returns its URL.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) (string, error) {
	start := time.Now()
	generatedAt := r.now().UTC()

	f, err := Build(req, generatedAt)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("xlsx write: %w", err)
	}

	key := storage.PlanDocumentKey(req.PaymentRef, generatedAt)
	if err := r.storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), xlsxMIME); err != nil {
		return "", fmt.Errorf("upload plan document: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(req.Recipes),
		logger.FieldSize:  buf.Len(),
		"key":             key,
	}).WithDuration(time.Since(start).Milliseconds()).Info(ctx, "Plan document rendered")

	return r.storage.GetURL(key), nil
}

// Build lays out the plan workbook: an overview sheet plus one sheet per meal
// type, in accumulator order.
func Build(req RenderRequest, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), overviewSheet); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		f.Close()
		return nil, err
	}

	grouped := map[domain.MealType][]domain.Recipe{}
	var other []domain.Recipe
	for _, rec := range req.Recipes {
		mt := rec.ResolvedMealType()
		if _, ok := domain.ParseMealType(string(mt)); !ok {
			other = append(other, rec)
			continue
		}
		grouped[mt] = append(grouped[mt], rec)
	}

	writeOverview(f, req, generatedAt, grouped, len(other), bold)

	for _, ms := range mealSheets {
		if err := writeRecipeSheet(f, ms.sheet, grouped[ms.mealType], bold, wrap); err != nil {
			f.Close()
			return nil, err
		}
	}
	if len(other) > 0 {
		if err := writeRecipeSheet(f, otherSheet, other, bold, wrap); err != nil {
			f.Close()
			return nil, err
		}
	}

	idx, _ := f.GetSheetIndex(overviewSheet)
	f.SetActiveSheet(idx)
	return f, nil
}

func writeOverview(f *excelize.File, req RenderRequest, generatedAt time.Time, grouped map[domain.MealType][]domain.Recipe, otherCount int, bold int) {
	rows := [][2]interface{}{
		{"Meal plan", generatedAt.Format("January 2006")},
		{"Customer", req.CustomerEmail},
		{"Product", req.ProductName},
		{"Diet", req.DietType},
		{"Family size", req.FamilySize},
		{"Order reference", req.PaymentRef},
	}
	if req.DietPlanID != "" {
		rows = append(rows, [2]interface{}{"Diet plan", req.DietPlanID})
	}
	rows = append(rows,
		[2]interface{}{"Total recipes", len(req.Recipes)},
	)
	for _, ms := range mealSheets {
		rows = append(rows, [2]interface{}{ms.sheet, len(grouped[ms.mealType])})
	}
	if otherCount > 0 {
		rows = append(rows, [2]interface{}{otherSheet, otherCount})
	}
	rows = append(rows, [2]interface{}{"Generated", generatedAt.Format(time.RFC3339)})

	for i, kv := range rows {
		label, _ := excelize.CoordinatesToCellName(1, i+1)
		value, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(overviewSheet, label, kv[0])
		_ = f.SetCellValue(overviewSheet, value, kv[1])
		_ = f.SetCellStyle(overviewSheet, label, label, bold)
	}
	_ = f.SetColWidth(overviewSheet, "A", "A", 18)
	_ = f.SetColWidth(overviewSheet, "B", "B", 42)
}

func writeRecipeSheet(f *excelize.File, sheet string, recipes []domain.Recipe, bold, wrap int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	for i, h := range recipeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(recipeHeaders), 1)
	_ = f.SetCellStyle(sheet, "A1", lastHeader, bold)

	for i, rec := range recipes {
		row := i + 2
		write := func(col int, v interface{}) string {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
			return cell
		}

		write(1, i+1)
		write(2, rec.Name)
		write(3, rec.Description)
		write(4, strings.Join(rec.IngredientTexts(), "\n"))
		write(5, numberedSteps(rec.Instructions))
		write(6, rec.Servings)
		if n := rec.Nutrition; n != nil {
			write(7, n.Calories)
			write(8, n.Protein)
			write(9, n.Carbs)
			write(10, n.Fat)
		}
		if rec.ImageURL != "" {
			cell := write(11, "View photo")
			_ = f.SetCellHyperLink(sheet, cell, rec.ImageURL, "External")
		}
		if rec.IsNew {
			write(12, "New")
		} else {
			write(12, "Library")
		}
	}

	if len(recipes) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(recipeHeaders), len(recipes)+1)
		_ = f.SetCellStyle(sheet, "A2", last, wrap)
	}
	_ = f.SetColWidth(sheet, "A", "A", 5)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "C", 48)
	_ = f.SetColWidth(sheet, "D", "E", 60)
	_ = f.SetColWidth(sheet, "F", "J", 12)
	_ = f.SetColWidth(sheet, "K", "L", 14)
	return nil
}

func numberedSteps(steps []string) string {
	lines := make([]string, 0, len(steps))
	for i, s := range steps {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(s)))
	}
	return strings.Join(lines, "\n")
}
