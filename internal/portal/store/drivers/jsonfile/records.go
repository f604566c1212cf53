package jsonfile

import (
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/shopspring/decimal"
)

// The farmer document keeps the field names of the earlier Node.js portal
// (_id, password, lastLogin) so its data directory can be loaded as is.

type farmersDoc struct {
	Farmers []farmerRecord `json:"farmers"`
}

type farmerRecord struct {
	ID               string     `json:"_id"`
	FullName         string     `json:"fullName"`
	Email            string     `json:"email"`
	Mobile           string     `json:"mobile"`
	Password         string     `json:"password"`
	Location         string     `json:"location"`
	CropType         string     `json:"cropType"`
	Language         string     `json:"language"`
	Status           string     `json:"status"`
	IsActive         bool       `json:"isActive"`
	IsVerified       bool       `json:"isVerified"`
	RegisteredAt     time.Time  `json:"registeredAt"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy       string     `json:"approvedBy,omitempty"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
	SuspensionReason string     `json:"suspensionReason,omitempty"`
	LastLogin        *time.Time `json:"lastLogin"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func newFarmerRecord(f domain.Farmer) farmerRecord {
	return farmerRecord{
		ID:               f.ID,
		FullName:         f.FullName,
		Email:            f.Email,
		Mobile:           f.Mobile,
		Password:         f.PasswordHash,
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
		LastLogin:        f.LastLoginAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func (r farmerRecord) toDomain() domain.Farmer {
	f := domain.Farmer{
		ID:               r.ID,
		Email:            domain.NormalizeEmail(r.Email),
		Mobile:           r.Mobile,
		FullName:         r.FullName,
		PasswordHash:     r.Password,
		Location:         r.Location,
		CropType:         domain.CropType(r.CropType),
		Language:         domain.Language(r.Language),
		Status:           domain.FarmerStatus(r.Status),
		IsActive:         r.IsActive,
		IsVerified:       r.IsVerified,
		RegisteredAt:     r.RegisteredAt,
		ApprovedAt:       r.ApprovedAt,
		ApprovedBy:       r.ApprovedBy,
		RejectionReason:  r.RejectionReason,
		SuspensionReason: r.SuspensionReason,
		LastLoginAt:      r.LastLogin,
		UpdatedAt:        r.UpdatedAt,
	}
	if f.Status == "" {
		f.Status = domain.StatusPending
	}
	if f.Language == "" {
		f.Language = domain.LanguageEnglish
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = f.RegisteredAt
	}
	return f
}

type adminsDoc struct {
	Admins []adminRecord `json:"admins"`
}

type adminRecord struct {
	ID           string     `json:"_id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	Password     string     `json:"password"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin"`
	MFASecret    *string    `json:"mfaSecret,omitempty"`
	MFAEnabledAt *time.Time `json:"mfaEnabledAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func newAdminRecord(a domain.Admin) adminRecord {
	return adminRecord{
		ID:           a.ID,
		Email:        a.Email,
		Username:     a.Username,
		Password:     a.PasswordHash,
		Role:         string(a.Role),
		IsActive:     a.IsActive,
		LastLogin:    a.LastLoginAt,
		MFASecret:    a.MFASecret,
		MFAEnabledAt: a.MFAEnabledAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r adminRecord) toDomain() domain.Admin {
	role, err := domain.ParseRole(r.Role)
	if err != nil {
		role = domain.Role(r.Role)
	}
	return domain.Admin{
		ID:           r.ID,
		Email:        domain.NormalizeEmail(r.Email),
		Username:     r.Username,
		PasswordHash: r.Password,
		Role:         role,
		IsActive:     r.IsActive,
		LastLoginAt:  r.LastLogin,
		MFASecret:    r.MFASecret,
		MFAEnabledAt: r.MFAEnabledAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type subsidiesDoc struct {
	Subsidies []subsidyRecord `json:"subsidies"`
}

type subsidyRecord struct {
	ID              string     `json:"_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Amount          float64    `json:"amount"`
	Eligibility     string     `json:"eligibility"`
	Category        string     `json:"category"`
	State           string     `json:"state"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	ApplicationLink string     `json:"applicationLink,omitempty"`
	ContactInfo     string     `json:"contactInfo,omitempty"`
	IsActive        bool       `json:"isActive"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func newSubsidyRecord(s domain.Subsidy) subsidyRecord {
	return subsidyRecord{
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

func (r subsidyRecord) toDomain() domain.Subsidy {
	return domain.Subsidy{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Amount:          r.Amount,
		Eligibility:     r.Eligibility,
		Category:        domain.SubsidyCategory(r.Category),
		State:           r.State,
		Deadline:        r.Deadline,
		ApplicationLink: r.ApplicationLink,
		ContactInfo:     r.ContactInfo,
		IsActive:        r.IsActive,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type notificationsDoc struct {
	Notifications []notificationRecord `json:"notifications"`
	Reads         []readRecord         `json:"reads"`
}

type notificationRecord struct {
	ID              string     `json:"_id"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	Type            string     `json:"type"`
	Priority        string     `json:"priority"`
	TargetAudience  string     `json:"targetAudience"`
	TargetLocations []string   `json:"targetLocations"`
	TargetCrops     []string   `json:"targetCrops"`
	ExpiryDate      *time.Time `json:"expiryDate,omitempty"`
	IsActive        bool       `json:"isActive"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func newNotificationRecord(n domain.Notification) notificationRecord {
	return notificationRecord{
		ID:              n.ID,
		Title:           n.Title,
		Message:         n.Message,
		Type:            string(n.Type),
		Priority:        string(n.Priority),
		TargetAudience:  string(n.Audience),
		TargetLocations: n.TargetLocations,
		TargetCrops:     n.TargetCrops,
		ExpiryDate:      n.ExpiresAt,
		IsActive:        n.IsActive,
		CreatedBy:       n.CreatedBy,
		CreatedAt:       n.CreatedAt,
	}
}

func (r notificationRecord) toDomain() domain.Notification {
	return domain.Notification{
		ID:              r.ID,
		Title:           r.Title,
		Message:         r.Message,
		Type:            domain.NotificationType(r.Type),
		Priority:        domain.Priority(r.Priority),
		Audience:        domain.Audience(r.TargetAudience),
		TargetLocations: r.TargetLocations,
		TargetCrops:     r.TargetCrops,
		ExpiresAt:       r.ExpiryDate,
		IsActive:        r.IsActive,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
	}
}

type readRecord struct {
	NotificationID string    `json:"notificationId"`
	FarmerID       string    `json:"farmerId"`
	ReadAt         time.Time `json:"readAt"`
}

func newReadRecord(r domain.NotificationRead) readRecord {
	return readRecord{NotificationID: r.NotificationID, FarmerID: r.FarmerID, ReadAt: r.ReadAt}
}

func (r readRecord) toDomain() domain.NotificationRead {
	return domain.NotificationRead{NotificationID: r.NotificationID, FarmerID: r.FarmerID, ReadAt: r.ReadAt}
}

type marketPricesDoc struct {
	MarketPrices []marketPriceRecord `json:"marketPrices"`
}

type marketPriceRecord struct {
	ID        string          `json:"_id"`
	Commodity string          `json:"commodity"`
	Market    string          `json:"market"`
	District  string          `json:"district,omitempty"`
	State     string          `json:"state"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	MinPrice  decimal.Decimal `json:"minPrice"`
	MaxPrice  decimal.Decimal `json:"maxPrice"`
	PriceDate time.Time       `json:"priceDate"`
	IsActive  bool            `json:"isActive"`
	CreatedBy string          `json:"createdBy"`
	UpdatedBy string          `json:"updatedBy,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func newMarketPriceRecord(p domain.MarketPrice) marketPriceRecord {
	return marketPriceRecord{
		ID:        p.ID,
		Commodity: p.Commodity,
		Market:    p.Market,
		District:  p.District,
		State:     p.State,
		Category:  string(p.Category),
		Unit:      string(p.Unit),
		Price:     p.Price,
		MinPrice:  p.MinPrice,
		MaxPrice:  p.MaxPrice,
		PriceDate: p.PriceDate,
		IsActive:  p.IsActive,
		CreatedBy: p.CreatedBy,
		UpdatedBy: p.UpdatedBy,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r marketPriceRecord) toDomain() domain.MarketPrice {
	return domain.MarketPrice{
		ID:        r.ID,
		Commodity: r.Commodity,
		Market:    r.Market,
		District:  r.District,
		State:     r.State,
		Category:  domain.PriceCategory(r.Category),
		Unit:      domain.PriceUnit(r.Unit),
		Price:     r.Price,
		MinPrice:  r.MinPrice,
		MaxPrice:  r.MaxPrice,
		PriceDate: r.PriceDate,
		IsActive:  r.IsActive,
		CreatedBy: r.CreatedBy,
		UpdatedBy: r.UpdatedBy,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
