package toolserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cuentas-dev/cuentas/internal/categories"
	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/similarity"
	"github.com/cuentas-dev/cuentas/internal/store"
	"github.com/cuentas-dev/cuentas/internal/transactions"
)

// TransactionQuerier lists transactions.
type TransactionQuerier interface {
	Query(ctx context.Context, f transactions.Filter) ([]model.Transaction, error)
}

// CategoryService is the category surface the tools drive.
type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, name, description string) (model.Category, error)
	Update(ctx context.Context, id int64, name, description string) (model.Category, error)
	Delete(ctx context.Context, id int64) error
	Assign(ctx context.Context, transactionID, categoryID int64) (model.Category, error)
	Remove(ctx context.Context, transactionID, categoryID int64) error
}

// SimilarityFinder ranks stored transactions against a reference.
type SimilarityFinder interface {
	Find(ctx context.Context, req similarity.Request) ([]model.SimilarityCandidate, error)
}

// Services backs the registered tools.
type Services struct {
	Transactions TransactionQuerier
	Categories   CategoryService
	Similarity   SimilarityFinder
}

// Outcome is the reply of every mutating tool.
type Outcome struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Category *model.Category `json:"category,omitempty"`
}

func schema(required []string, props map[string]any) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

// Register binds every cuentas tool to srv.
func Register(srv *Server, svc Services) {
	srv.RegisterTool(Tool{
		Name:        "get_transactions",
		Description: "List transactions newest first, optionally filtered by month (YYYY-MM) and category id.",
		InputSchema: schema(nil, map[string]any{
			"month":       prop("string", "Month as YYYY-MM"),
			"category_id": prop("integer", "Only transactions tagged with this category"),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		categoryID, err := intArg(args, "category_id")
		if err != nil {
			return nil, err
		}
		return svc.Transactions.Query(ctx, transactions.Filter{
			Month:      stringArg(args, "month"),
			CategoryID: int64(categoryID),
		})
	})

	srv.RegisterTool(Tool{
		Name:        "get_categories",
		Description: "List all categories ordered by name.",
		InputSchema: schema(nil, map[string]any{}),
	}, func(ctx context.Context, _ map[string]any) (any, error) {
		return svc.Categories.List(ctx)
	})

	srv.RegisterTool(Tool{
		Name:        "create_category",
		Description: "Create a category with a unique name.",
		InputSchema: schema([]string{"name"}, map[string]any{
			"name":        prop("string", "Category name"),
			"description": prop("string", "Optional description"),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		c, err := svc.Categories.Create(ctx, stringArg(args, "name"), stringArg(args, "description"))
		if err != nil {
			return failure(err)
		}
		return Outcome{Success: true, Message: fmt.Sprintf("category %q created", c.Name), Category: &c}, nil
	})

	srv.RegisterTool(Tool{
		Name:        "update_category",
		Description: "Rename a category and replace its description.",
		InputSchema: schema([]string{"category_id", "name"}, map[string]any{
			"category_id": prop("integer", "Category id"),
			"name":        prop("string", "New name"),
			"description": prop("string", "New description"),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := requireID(args, "category_id")
		if err != nil {
			return nil, err
		}
		c, err := svc.Categories.Update(ctx, id, stringArg(args, "name"), stringArg(args, "description"))
		if err != nil {
			return failure(err)
		}
		return Outcome{Success: true, Message: fmt.Sprintf("category %d updated", id), Category: &c}, nil
	})

	srv.RegisterTool(Tool{
		Name:        "delete_category",
		Description: "Delete a category and detach it from every transaction.",
		InputSchema: schema([]string{"category_id"}, map[string]any{
			"category_id": prop("integer", "Category id"),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := requireID(args, "category_id")
		if err != nil {
			return nil, err
		}
		if err := svc.Categories.Delete(ctx, id); err != nil {
			return failure(err)
		}
		return Outcome{Success: true, Message: fmt.Sprintf("category %d deleted", id)}, nil
	})

	srv.RegisterTool(Tool{
		Name:        "assign_category_to_transaction",
		Description: "Tag a transaction with a category.",
		InputSchema: schema([]string{"transaction_id", "category_id"}, map[string]any{
			"transaction_id": prop("integer", "Transaction id"),
			"category_id":    prop("integer", "Category id"),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		txID, catID, err := linkArgs(args)
		if err != nil {
			return nil, err
		}
		c, err := svc.Categories.Assign(ctx, txID, catID)
		if err != nil {
			return failure(err)
		}
		return Outcome{
			Success:  true,
			Message:  fmt.Sprintf("category %q assigned to transaction %d", c.Name, txID),
			Category: &c,
		}, nil
	})

	srv.RegisterTool(Tool{
		Name:        "remove_category_from_transaction",
		Description: "Remove a category tag from a transaction.",
		InputSchema: schema([]string{"transaction_id", "category_id"}, map[string]any{
			"transaction_id": prop("integer", "Transaction id"),
			"category_id":    prop("integer", "Category id"),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		txID, catID, err := linkArgs(args)
		if err != nil {
			return nil, err
		}
		if err := svc.Categories.Remove(ctx, txID, catID); err != nil {
			return failure(err)
		}
		return Outcome{Success: true, Message: fmt.Sprintf("category %d removed from transaction %d", catID, txID)}, nil
	})

	srv.RegisterTool(Tool{
		Name:        "find_similar_transactions",
		Description: "Rank transactions from the year up to date by similarity to a reference movement.",
		InputSchema: schema([]string{"description", "amount", "date"}, map[string]any{
			"description": prop("string", "Reference description"),
			"amount":      prop("number", "Reference amount"),
			"date":        prop("string", "Reference date as YYYY-MM-DD"),
			"threshold":   prop("number", "Minimum total similarity, default 0.8"),
			"top_k":       prop("integer", "Return exactly this many best candidates instead"),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		amount, err := decimalArg(args, "amount")
		if err != nil {
			return nil, err
		}
		threshold, err := floatArg(args, "threshold")
		if err != nil {
			return nil, err
		}
		topK, err := intArg(args, "top_k")
		if err != nil {
			return nil, err
		}
		return svc.Similarity.Find(ctx, similarity.Request{
			Description: stringArg(args, "description"),
			Amount:      amount,
			Date:        stringArg(args, "date"),
			Threshold:   threshold,
			TopK:        topK,
		})
	})
}

// failure turns expected domain errors into an unsuccessful Outcome and
// passes everything else up as a tool error.
func failure(err error) (any, error) {
	switch {
	case errors.Is(err, categories.ErrAlreadyAssigned),
		errors.Is(err, categories.ErrAssignmentNotFound),
		errors.Is(err, categories.ErrEmptyName),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrConflict):
		return Outcome{Success: false, Message: err.Error()}, nil
	}
	return nil, err
}

func linkArgs(args map[string]any) (int64, int64, error) {
	txID, err := requireID(args, "transaction_id")
	if err != nil {
		return 0, 0, err
	}
	catID, err := requireID(args, "category_id")
	if err != nil {
		return 0, 0, err
	}
	return txID, catID, nil
}

func requireID(args map[string]any, key string) (int64, error) {
	id, err := intArg(args, key)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s is required", key)
	}
	return int64(id), nil
}

func stringArg(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// intArg returns 0 for a missing key and an error for a value that is
// not a whole number.
func intArg(m map[string]any, key string) (int, error) {
	switch n := m[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s: expected an integer, got %v", key, n)
		}
		return int(n), nil
	case int:
		return n, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%s: invalid integer %q", key, n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%s: expected an integer", key)
}

// floatArg returns 0 for a missing key and an error for a value that is
// not a number.
func floatArg(m map[string]any, key string) (float64, error) {
	switch n := m[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid number %q", key, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%s: expected a number", key)
}

// decimalArg accepts a JSON number or a string using either decimal
// separator.
func decimalArg(m map[string]any, key string) (decimal.Decimal, error) {
	switch v := m[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(v), ",", "."))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: invalid number %q", key, v)
		}
		return d, nil
	case nil:
		return decimal.Zero, fmt.Errorf("%s is required", key)
	}
	return decimal.Zero, fmt.Errorf("%s: expected a number", key)
}
