package htmlimport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/concurrency"
	"course-eligibility/internal/domain"
)

// Changes is what loading a document would do to a store. Keys are
// programme codes, or "code@cluster" for cutoff rows.
type Changes struct {
	Create []string
	Update []string
	// Stale rows are in the store but not in the document. Loading only
	// upserts, so they stay.
	Stale []string
}

func (c Changes) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Stale) == 0
}

func (c *Changes) add(o Changes) {
	c.Create = append(c.Create, o.Create...)
	c.Update = append(c.Update, o.Update...)
	c.Stale = append(c.Stale, o.Stale...)
}

func (c *Changes) sort() {
	sort.Strings(c.Create)
	sort.Strings(c.Update)
	sort.Strings(c.Stale)
}

// DiffProgrammes compares the store's records of one category with the
// incoming ones.
func DiffProgrammes(existing, incoming []domain.ProgrammeRecord) Changes {
	inByCode := make(map[string]domain.ProgrammeRecord, len(incoming))
	for _, r := range incoming {
		if code := strings.TrimSpace(r.Code); code != "" {
			inByCode[code] = r
		}
	}
	exByCode := make(map[string]domain.ProgrammeRecord, len(existing))
	for _, r := range existing {
		if code := strings.TrimSpace(r.Code); code != "" {
			exByCode[code] = r
		}
	}

	var ch Changes
	for code, in := range inByCode {
		ex, ok := exByCode[code]
		if !ok {
			ch.Create = append(ch.Create, code)
			continue
		}
		if programmeChanged(ex, in) {
			ch.Update = append(ch.Update, code)
		}
	}
	for code := range exByCode {
		if _, ok := inByCode[code]; !ok {
			ch.Stale = append(ch.Stale, code)
		}
	}
	ch.sort()
	return ch
}

func programmeChanged(ex, in domain.ProgrammeRecord) bool {
	if norm(ex.Name) != norm(in.Name) ||
		norm(ex.Institution) != norm(in.Institution) ||
		norm(ex.County) != norm(in.County) ||
		norm(ex.Region) != norm(in.Region) ||
		norm(ex.InstitutionType) != norm(in.InstitutionType) ||
		norm(ex.CategoryTag) != norm(in.CategoryTag) {
		return true
	}
	if domain.ParseGrade(ex.MeanGrade) != domain.ParseGrade(in.MeanGrade) {
		return true
	}
	return catalog.RequirementColumns(ex.Requirements) != catalog.RequirementColumns(in.Requirements)
}

// DiffCutoffs compares cutoff rows. Only clusters present in incoming are
// expected in existing.
func DiffCutoffs(existing, incoming []catalog.Cutoff) Changes {
	key := func(c catalog.Cutoff) string {
		return fmt.Sprintf("%s@%d", strings.TrimSpace(c.ProgrammeCode), c.Cluster)
	}
	inByKey := make(map[string]catalog.Cutoff, len(incoming))
	for _, c := range incoming {
		inByKey[key(c)] = c
	}
	exByKey := make(map[string]catalog.Cutoff, len(existing))
	for _, c := range existing {
		exByKey[key(c)] = c
	}

	var ch Changes
	for k, in := range inByKey {
		ex, ok := exByKey[k]
		if !ok {
			ch.Create = append(ch.Create, k)
			continue
		}
		if cutoffChanged(ex.Cutoff, in.Cutoff) || norm(ex.Name) != norm(in.Name) || norm(ex.Institution) != norm(in.Institution) {
			ch.Update = append(ch.Update, k)
		}
	}
	for k := range exByKey {
		if _, ok := inByKey[k]; !ok {
			ch.Stale = append(ch.Stale, k)
		}
	}
	ch.sort()
	return ch
}

// cutoffChanged tolerates float formatting differences between the page and
// the store.
func cutoffChanged(a, b *float64) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return math.Abs(*a-*b) > 0.0005
}

// Plan reads what doc would touch from c and diffs it. Degree programme
// rows are looked up one by one since degree listings come from the cutoff
// table; their stale rows are not reported.
func Plan(ctx context.Context, c catalog.Catalog, doc Document) (Changes, error) {
	var ch Changes

	byCategory := map[domain.Category][]domain.ProgrammeRecord{}
	for _, r := range doc.Programmes {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}
	for category, incoming := range byCategory {
		var existing []domain.ProgrammeRecord
		if category == domain.CategoryDegree {
			found := make([]*domain.ProgrammeRecord, len(incoming))
			errs := concurrency.ForEach(ctx, incoming, concurrency.DefaultOptions(),
				func(ctx context.Context, i int, r domain.ProgrammeRecord) error {
					rec, err := c.ProgrammeDetail(ctx, category, r.Code)
					if errors.Is(err, catalog.ErrNotFound) {
						return nil
					}
					if err != nil {
						return err
					}
					found[i] = &rec
					return nil
				})
			if err := ctx.Err(); err != nil {
				return Changes{}, err
			}
			if len(errs) > 0 {
				return Changes{}, fmt.Errorf("plan: %w", errors.Join(errs...))
			}
			for _, rec := range found {
				if rec != nil {
					existing = append(existing, *rec)
				}
			}
		} else {
			var err error
			if existing, err = c.ListProgrammes(ctx, catalog.Query{Category: category}); err != nil {
				return Changes{}, fmt.Errorf("plan: %w", err)
			}
		}
		ch.add(DiffProgrammes(existing, incoming))
	}

	clusters := map[int]bool{}
	for _, cut := range doc.Cutoffs {
		clusters[cut.Cluster] = true
	}
	var existing []catalog.Cutoff
	for cluster := range clusters {
		recs, err := c.ListProgrammes(ctx, catalog.Query{Category: domain.CategoryDegree, Cluster: cluster})
		if err != nil {
			return Changes{}, fmt.Errorf("plan: cluster %d: %w", cluster, err)
		}
		for _, r := range recs {
			existing = append(existing, catalog.Cutoff{
				ProgrammeCode: r.Code,
				Cluster:       cluster,
				Name:          r.Name,
				Institution:   r.Institution,
				Cutoff:        r.Cutoff,
			})
		}
	}
	if len(doc.Cutoffs) > 0 {
		ch.add(DiffCutoffs(existing, doc.Cutoffs))
	}

	ch.sort()
	return ch, nil
}

func norm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
