package jsonfile

import (
	"cmp"
	"context"
	"slices"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
)

type subsidiesRepo struct {
	r runner
}

func findSubsidy(d *dataset, id string) int {
	return slices.IndexFunc(d.subsidies, func(s domain.Subsidy) bool { return s.ID == id })
}

func (r *subsidiesRepo) Create(ctx context.Context, s domain.Subsidy) error {
	return r.r.write(colSubsidies, func(d *dataset) error {
		if findSubsidy(d, s.ID) >= 0 {
			return store.ErrAlreadyExists
		}
		if findAdmin(d, s.CreatedBy) < 0 {
			return store.ErrNotFound
		}
		d.subsidies = append(d.subsidies, s)
		return nil
	})
}

func (r *subsidiesRepo) GetByID(ctx context.Context, id string) (domain.Subsidy, error) {
	var out domain.Subsidy
	err := r.r.read(func(d *dataset) error {
		i := findSubsidy(d, id)
		if i < 0 {
			return store.ErrNotFound
		}
		out = d.subsidies[i]
		return nil
	})
	return out, err
}

func (r *subsidiesRepo) Update(ctx context.Context, s domain.Subsidy) error {
	return r.r.write(colSubsidies, func(d *dataset) error {
		i := findSubsidy(d, s.ID)
		if i < 0 {
			return store.ErrNotFound
		}
		s.CreatedBy = d.subsidies[i].CreatedBy
		s.CreatedAt = d.subsidies[i].CreatedAt
		d.subsidies[i] = s
		return nil
	})
}

func (r *subsidiesRepo) Delete(ctx context.Context, id string) error {
	return r.r.write(colSubsidies, func(d *dataset) error {
		i := findSubsidy(d, id)
		if i < 0 {
			return store.ErrNotFound
		}
		d.subsidies = slices.Delete(d.subsidies, i, i+1)
		return nil
	})
}

func (r *subsidiesRepo) List(ctx context.Context, activeOnly bool, category domain.SubsidyCategory) ([]domain.Subsidy, error) {
	var out []domain.Subsidy
	err := r.r.read(func(d *dataset) error {
		for _, s := range d.subsidies {
			if activeOnly && !s.IsActive {
				continue
			}
			if category != "" && s.Category != category {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Subsidy) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, err
}
