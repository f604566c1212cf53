package jsonfile

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
)

type farmersRepo struct {
	r runner
}

func findFarmer(d *dataset, id string) int {
	return slices.IndexFunc(d.farmers, func(f domain.Farmer) bool { return f.ID == id })
}

// taken reports whether another farmer than id holds email or mobile.
func taken(d *dataset, id, email, mobile string) bool {
	return slices.ContainsFunc(d.farmers, func(f domain.Farmer) bool {
		return f.ID != id && (f.Email == email || f.Mobile == mobile)
	})
}

func (r *farmersRepo) Create(ctx context.Context, f domain.Farmer) error {
	return r.r.write(colFarmers, func(d *dataset) error {
		if findFarmer(d, f.ID) >= 0 || taken(d, f.ID, f.Email, f.Mobile) {
			return store.ErrAlreadyExists
		}
		d.farmers = append(d.farmers, f)
		return nil
	})
}

func (r *farmersRepo) GetByID(ctx context.Context, id string) (domain.Farmer, error) {
	return r.get(func(f domain.Farmer) bool { return f.ID == id })
}

func (r *farmersRepo) GetByEmail(ctx context.Context, email string) (domain.Farmer, error) {
	return r.get(func(f domain.Farmer) bool { return f.Email == email })
}

func (r *farmersRepo) GetByEmailOrMobile(ctx context.Context, email, mobile string) (domain.Farmer, error) {
	return r.get(func(f domain.Farmer) bool { return f.Email == email || f.Mobile == mobile })
}

func (r *farmersRepo) get(match func(domain.Farmer) bool) (domain.Farmer, error) {
	var out domain.Farmer
	err := r.r.read(func(d *dataset) error {
		i := slices.IndexFunc(d.farmers, match)
		if i < 0 {
			return store.ErrNotFound
		}
		out = d.farmers[i]
		return nil
	})
	return out, err
}

func (r *farmersRepo) UpdateProfile(ctx context.Context, f domain.Farmer) error {
	return r.r.write(colFarmers, func(d *dataset) error {
		i := findFarmer(d, f.ID)
		if i < 0 {
			return store.ErrNotFound
		}
		cur := &d.farmers[i]
		if taken(d, f.ID, cur.Email, f.Mobile) {
			return store.ErrAlreadyExists
		}
		cur.FullName = f.FullName
		cur.Mobile = f.Mobile
		cur.Location = f.Location
		cur.CropType = f.CropType
		cur.Language = f.Language
		cur.UpdatedAt = f.UpdatedAt
		return nil
	})
}

func (r *farmersRepo) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return r.r.write(colFarmers, func(d *dataset) error {
		i := findFarmer(d, id)
		if i < 0 {
			return store.ErrNotFound
		}
		d.farmers[i].PasswordHash = hash
		d.farmers[i].UpdatedAt = at
		return nil
	})
}

func (r *farmersRepo) TransitionStatus(
	ctx context.Context,
	id string,
	from []domain.FarmerStatus,
	change domain.StatusChange,
) (domain.Farmer, error) {
	var out domain.Farmer
	err := r.r.write(colFarmers, func(d *dataset) error {
		i := findFarmer(d, id)
		if i < 0 {
			return store.ErrNotFound
		}
		if !slices.Contains(from, d.farmers[i].Status) {
			out = d.farmers[i]
			return fmt.Errorf("%w: farmer is %s", store.ErrStateChanged, d.farmers[i].Status)
		}
		change.Apply(&d.farmers[i])
		out = d.farmers[i]
		return nil
	})
	return out, err
}

func (r *farmersRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return r.r.write(colFarmers, func(d *dataset) error {
		i := findFarmer(d, id)
		if i < 0 {
			return store.ErrNotFound
		}
		d.farmers[i].LastLoginAt = &at
		return nil
	})
}

func (r *farmersRepo) List(ctx context.Context, filter domain.FarmerFilter) ([]domain.Farmer, int, error) {
	var matched []domain.Farmer
	err := r.r.read(func(d *dataset) error {
		for _, f := range d.farmers {
			if filter.Matches(f) {
				matched = append(matched, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	slices.SortFunc(matched, func(a, b domain.Farmer) int {
		if c := b.RegisteredAt.Compare(a.RegisteredAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *farmersRepo) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	counts := domain.StatusCounts{}
	err := r.r.read(func(d *dataset) error {
		for _, f := range d.farmers {
			counts[f.Status]++
		}
		return nil
	})
	return counts, err
}
