package app

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/paradise-007/healthally/pkg/analytics"
	"github.com/paradise-007/healthally/pkg/store"
)

// dashboardRows caps the analytics tables on the dashboard.
const dashboardRows = 100

// DepartmentCount is one bar of the user distribution chart.
type DepartmentCount struct {
	Department string `json:"department"`
	Users      int64  `json:"users"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	Counts           map[store.Collection]int64 `json:"counts"`
	Departments      []DepartmentCount          `json:"departments"`
	AnalyticsEnabled bool                       `json:"analyticsEnabled"`
	AnalyticsUsers   []analytics.UserRow        `json:"analyticsUsers,omitempty"`
	AnalyticsQueries []analytics.QueryRow       `json:"analyticsQueries,omitempty"`
}

// Dashboard gathers collection counts, the user distribution (restricted to
// departments when given) and the latest analytics rows concurrently.
func (a *App) Dashboard(ctx context.Context, departments []string) (Dashboard, error) {
	out := Dashboard{
		Counts:           make(map[store.Collection]int64, len(store.Collections)),
		AnalyticsEnabled: a.analytics != nil,
	}
	var mu sync.Mutex
	var byDepartment map[string]int64

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range store.Collections {
		c := c
		g.Go(func() error {
			n, err := a.store.Count(gctx, c)
			if err != nil {
				return fmt.Errorf("count %s: %w", c, err)
			}
			mu.Lock()
			out.Counts[c] = n
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		counts, err := a.store.UsersByDepartment(gctx)
		if err != nil {
			return fmt.Errorf("users by department: %w", err)
		}
		byDepartment = counts
		return nil
	})
	if a.analytics != nil {
		g.Go(func() error {
			rows, err := a.analytics.ListUsers(gctx, dashboardRows)
			if err != nil {
				return fmt.Errorf("analytics users: %w", err)
			}
			out.AnalyticsUsers = rows
			return nil
		})
		g.Go(func() error {
			rows, err := a.analytics.ListQueries(gctx, dashboardRows)
			if err != nil {
				return fmt.Errorf("analytics queries: %w", err)
			}
			out.AnalyticsQueries = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	out.Departments = departmentCounts(byDepartment, departments)
	return out, nil
}

func departmentCounts(counts map[string]int64, only []string) []DepartmentCount {
	out := make([]DepartmentCount, 0, len(counts))
	for dept, n := range counts {
		if len(only) > 0 && !slices.Contains(only, dept) {
			continue
		}
		out = append(out, DepartmentCount{Department: dept, Users: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Users != out[j].Users {
			return out[i].Users > out[j].Users
		}
		return out[i].Department < out[j].Department
	})
	return out
}
