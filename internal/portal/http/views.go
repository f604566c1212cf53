package http

import (
	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/feeds"
	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
)

func farmerView(f domain.Farmer) portalsdk.Farmer {
	return portalsdk.Farmer{
		ID:               f.ID,
		FullName:         f.FullName,
		Email:            f.Email,
		Mobile:           f.Mobile,
		Location:         f.Location,
		CropType:         string(f.CropType),
		Language:         string(f.Language),
		Status:           string(f.Status),
		IsActive:         f.IsActive,
		IsVerified:       f.IsVerified,
		RegisteredAt:     f.RegisteredAt,
		ApprovedAt:       f.ApprovedAt,
		ApprovedBy:       f.ApprovedBy,
		RejectionReason:  f.RejectionReason,
		SuspensionReason: f.SuspensionReason,
		LastLoginAt:      f.LastLoginAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func farmerViews(fs []domain.Farmer) []portalsdk.Farmer {
	out := make([]portalsdk.Farmer, 0, len(fs))
	for _, f := range fs {
		out = append(out, farmerView(f))
	}
	return out
}

func adminView(a domain.Admin) portalsdk.Admin {
	return portalsdk.Admin{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		Role:        string(a.Role),
		IsActive:    a.IsActive,
		MFAEnabled:  a.MFAEnabled(),
		LastLoginAt: a.LastLoginAt,
	}
}

func subsidyView(s domain.Subsidy) portalsdk.Subsidy {
	return portalsdk.Subsidy{
		ID:              s.ID,
		Title:           s.Title,
		Description:     s.Description,
		Amount:          s.Amount,
		Eligibility:     s.Eligibility,
		Category:        string(s.Category),
		State:           s.State,
		Deadline:        s.Deadline,
		ApplicationLink: s.ApplicationLink,
		ContactInfo:     s.ContactInfo,
		IsActive:        s.IsActive,
		CreatedBy:       s.CreatedBy,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func subsidyViews(ss []domain.Subsidy) []portalsdk.Subsidy {
	out := make([]portalsdk.Subsidy, 0, len(ss))
	for _, s := range ss {
		out = append(out, subsidyView(s))
	}
	return out
}

func subsidyFromRequest(req portalsdk.SubsidyRequest) domain.Subsidy {
	return domain.Subsidy{
		Title:           req.Title,
		Description:     req.Description,
		Amount:          req.Amount,
		Eligibility:     req.Eligibility,
		Category:        domain.SubsidyCategory(req.Category),
		State:           req.State,
		Deadline:        req.Deadline,
		ApplicationLink: req.ApplicationLink,
		ContactInfo:     req.ContactInfo,
	}
}

func notificationView(n domain.Notification) portalsdk.Notification {
	return portalsdk.Notification{
		ID:              n.ID,
		Title:           n.Title,
		Message:         n.Message,
		Type:            string(n.Type),
		Priority:        string(n.Priority),
		TargetAudience:  string(n.Audience),
		TargetLocations: n.TargetLocations,
		TargetCrops:     n.TargetCrops,
		ExpiresAt:       n.ExpiresAt,
		IsActive:        n.IsActive,
		CreatedBy:       n.CreatedBy,
		CreatedAt:       n.CreatedAt,
	}
}

func farmerNotificationViews(ns []service.FarmerNotification) []portalsdk.Notification {
	out := make([]portalsdk.Notification, 0, len(ns))
	for _, n := range ns {
		v := notificationView(n.Notification)
		v.Read = n.Read
		out = append(out, v)
	}
	return out
}

func pricesView(ps feeds.PriceSet) portalsdk.MarketPricesResponse {
	out := portalsdk.MarketPricesResponse{
		Prices:    make([]portalsdk.Price, 0, len(ps.Prices)),
		FetchedAt: ps.FetchedAt,
		Source:    ps.Source,
		Stale:     ps.Stale,
	}
	for _, p := range ps.Prices {
		out.Prices = append(out.Prices, portalsdk.Price{
			Commodity:  p.Commodity,
			Market:     p.Market,
			District:   p.District,
			State:      p.State,
			MinPrice:   p.MinPrice.InexactFloat64(),
			MaxPrice:   p.MaxPrice.InexactFloat64(),
			ModalPrice: p.ModalPrice.InexactFloat64(),
			Unit:       p.Unit,
			Date:       p.Date,
			Source:     p.Source,
		})
	}
	return out
}

func marketPriceView(p domain.MarketPrice) portalsdk.MarketPrice {
	return portalsdk.MarketPrice{
		ID:        p.ID,
		Commodity: p.Commodity,
		Market:    p.Market,
		District:  p.District,
		State:     p.State,
		Category:  string(p.Category),
		Unit:      string(p.Unit),
		Price:     p.Price.InexactFloat64(),
		MinPrice:  p.MinPrice.InexactFloat64(),
		MaxPrice:  p.MaxPrice.InexactFloat64(),
		PriceDate: p.PriceDate,
		IsActive:  p.IsActive,
		CreatedBy: p.CreatedBy,
		UpdatedBy: p.UpdatedBy,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func marketPriceViews(ps []domain.MarketPrice) []portalsdk.MarketPrice {
	out := make([]portalsdk.MarketPrice, 0, len(ps))
	for _, p := range ps {
		out = append(out, marketPriceView(p))
	}
	return out
}

func weatherView(w feeds.WeatherSnapshot) portalsdk.WeatherResponse {
	return portalsdk.WeatherResponse{
		Location:     w.Location,
		TemperatureC: w.TemperatureC,
		FeelsLikeC:   w.FeelsLikeC,
		Humidity:     w.Humidity,
		WindKph:      w.WindKph,
		Description:  w.Description,
		FetchedAt:    w.FetchedAt,
		Stale:        w.Stale,
	}
}
