package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"github.com/noless3011/data-formulator/internal/dbtest"
)

func TestFuzzyFindRanksAndLimits(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		want := "SELECT DISTINCT `city` FROM `customers` WHERE `city` IS NOT NULL"
		if query != want {
			t.Errorf("query = %q, want %q", query, want)
		}
		return &dbtest.Result{
			Columns: []string{"city"},
			Rows: [][]driver.Value{
				{"Portland"}, {"Port Angeles"}, {"Porto"}, {"Newport"},
				{"Port Orchard"}, {"Sportsville"}, {"Denver"},
			},
		}, nil
	})
	h := readHandler(t, engine)

	got, err := h.FuzzyFind(context.Background(), "port", "city", "customers")
	if err != nil {
		t.Fatalf("FuzzyFind failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d matches %v, want 5", len(got), got)
	}
	for _, v := range got {
		if !strings.Contains(strings.ToLower(v), "port") {
			t.Errorf("match %q does not contain the term", v)
		}
	}
}

func TestFuzzyFindFewerCandidatesThanLimit(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		return &dbtest.Result{
			Columns: []string{"status"},
			Rows:    [][]driver.Value{{"shipped"}, {"pending"}},
		}, nil
	})
	h := readHandler(t, engine)

	got, err := h.FuzzyFind(context.Background(), "ship", "status", "orders")
	if err != nil {
		t.Fatalf("FuzzyFind failed: %v", err)
	}
	if len(got) != 1 || got[0] != "shipped" {
		t.Errorf("got %v, want [shipped]", got)
	}
}

func TestFuzzyFindDriverErrorYieldsEmptySlice(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		return nil, errors.New("Table 'sales.customers' doesn't exist")
	})
	h := readHandler(t, engine)

	got, err := h.FuzzyFind(context.Background(), "port", "city", "customers")
	if err != nil {
		t.Fatalf("driver failure leaked as error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestFuzzyFindWithoutEngineReturnsError(t *testing.T) {
	h := New("127.0.0.1", "alice", "secret", "sales", "1")

	_, err := h.FuzzyFind(context.Background(), "port", "city", "customers")
	if err == nil {
		t.Fatal("FuzzyFind succeeded without a connection")
	}
	if !errors.Is(err, ErrConnection) {
		t.Errorf("error = %v, want ErrConnection", err)
	}
}

func TestRankValuesOrdering(t *testing.T) {
	got := rankValues("abc", []string{"zabc", "abc", "a_b_c_long", "abcd"})
	if len(got) == 0 {
		t.Fatal("no matches")
	}
	if got[0] != "abc" {
		t.Errorf("top match = %q, want exact candidate first", got[0])
	}
}
