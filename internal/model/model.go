package model

import "time"

type Role string

const (
	RoleUser   Role = "user"
	RoleExpert Role = "expert"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Role            Role      `json:"role"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type PersonalInfo struct {
	PAN     string `json:"pan" yaml:"pan" validate:"min=10"`
	Aadhaar string `json:"aadhaar,omitempty" yaml:"aadhaar"`
	Mobile  string `json:"mobile" yaml:"mobile" validate:"min=10"`
	Email   string `json:"email" yaml:"email" validate:"email"`
}

type Income struct {
	Salary        float64 `json:"salary" yaml:"salary" validate:"gte=0"`
	HouseProperty float64 `json:"houseProperty" yaml:"houseProperty" validate:"gte=0"`
	CapitalGains  float64 `json:"capitalGains" yaml:"capitalGains" validate:"gte=0"`
	OtherSources  float64 `json:"otherSources" yaml:"otherSources" validate:"gte=0"`
}

type Deductions struct {
	Section80C      float64 `json:"section80C" yaml:"section80C" validate:"gte=0"`
	Section80D      float64 `json:"section80D" yaml:"section80D" validate:"gte=0"`
	OtherDeductions float64 `json:"otherDeductions" yaml:"otherDeductions" validate:"gte=0"`
}

type ItrFormData struct {
	PersonalInfo PersonalInfo `json:"personalInfo" yaml:"personalInfo"`
	Income       Income       `json:"income" yaml:"income"`
	Deductions   Deductions   `json:"deductions" yaml:"deductions"`
}

// ItrFormInput is the body of POST /api/itr-forms and PUT /api/itr-forms/{id}.
type ItrFormInput struct {
	FormType       string      `json:"formType" yaml:"formType" validate:"required"`
	AssessmentYear string      `json:"assessmentYear" yaml:"assessmentYear" validate:"required"`
	FinancialYear  string      `json:"financialYear" yaml:"financialYear" validate:"required"`
	FormData       ItrFormData `json:"formData" yaml:"formData"`
}

type ItrForm struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"userId"`
	FormType             string      `json:"formType,omitempty"`
	AssessmentYear       string      `json:"assessmentYear"`
	FinancialYear        string      `json:"financialYear,omitempty"`
	FormData             ItrFormData `json:"formData"`
	FilingDate           string      `json:"filingDate,omitempty"`
	AcknowledgmentNumber string      `json:"acknowledgmentNumber,omitempty"`
	RefundAmount         string      `json:"refundAmount,omitempty"`
	Status               string      `json:"status"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

type GstReturnData struct {
	OutwardSupplies float64 `json:"outwardSupplies" yaml:"outwardSupplies" validate:"gte=0"`
	InwardSupplies  float64 `json:"inwardSupplies" yaml:"inwardSupplies" validate:"gte=0"`
	IGST            float64 `json:"igst" yaml:"igst" validate:"gte=0"`
	CGST            float64 `json:"cgst" yaml:"cgst" validate:"gte=0"`
	SGST            float64 `json:"sgst" yaml:"sgst" validate:"gte=0"`
	Cess            float64 `json:"cess" yaml:"cess" validate:"gte=0"`
}

type GstReturnInput struct {
	GSTIN      string        `json:"gstin" yaml:"gstin" validate:"min=15"`
	ReturnType string        `json:"returnType" yaml:"returnType" validate:"required"`
	Period     string        `json:"period" yaml:"period" validate:"required"`
	ReturnData GstReturnData `json:"returnData" yaml:"returnData"`
}

type GstReturn struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	GSTIN        string        `json:"gstin"`
	ReturnType   string        `json:"returnType"`
	Period       string        `json:"period"`
	ReturnData   GstReturnData `json:"returnData"`
	FilingDate   string        `json:"filingDate,omitempty"`
	ARN          string        `json:"arn,omitempty"`
	TaxLiability string        `json:"taxLiability,omitempty"`
	Status       string        `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type TdsReturnData struct {
	TotalTdsDeducted   float64 `json:"totalTdsDeducted" yaml:"totalTdsDeducted" validate:"gte=0"`
	TotalTdsDeposited  float64 `json:"totalTdsDeposited" yaml:"totalTdsDeposited" validate:"gte=0"`
	TotalDeductees     float64 `json:"totalDeductees" yaml:"totalDeductees" validate:"gte=0"`
	TotalChallanAmount float64 `json:"totalChallanAmount" yaml:"totalChallanAmount" validate:"gte=0"`
}

type TdsReturnInput struct {
	TAN           string        `json:"tan" yaml:"tan" validate:"min=10"`
	Quarter       string        `json:"quarter" yaml:"quarter" validate:"required"`
	FinancialYear string        `json:"financialYear" yaml:"financialYear" validate:"required"`
	FormType      string        `json:"formType" yaml:"formType" validate:"required"`
	ReturnData    TdsReturnData `json:"returnData" yaml:"returnData"`
}

type TdsReturn struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	TAN           string        `json:"tan,omitempty"`
	Quarter       string        `json:"quarter"`
	FinancialYear string        `json:"financialYear"`
	FormType      string        `json:"formType,omitempty"`
	ReturnData    TdsReturnData `json:"returnData"`
	FilingDate    string        `json:"filingDate,omitempty"`
	Token         string        `json:"token,omitempty"`
	Status        string        `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	FileType  string    `json:"fileType,omitempty"`
	Size      int64     `json:"size"`
	URL       string    `json:"url"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Expert is a user with the expert role offering consultations.
type Expert struct {
	ID              string   `json:"id"`
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	Email           string   `json:"email"`
	ProfileImageURL string   `json:"profileImageUrl,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
}

func (e Expert) FullName() string {
	return User{FirstName: e.FirstName, LastName: e.LastName}.FullName()
}

type ConsultationInput struct {
	ExpertID      string `json:"expertId" yaml:"expertId" validate:"required"`
	ServiceType   string `json:"serviceType" yaml:"serviceType" validate:"required"`
	ScheduledDate string `json:"scheduledDate" yaml:"scheduledDate" validate:"required"`
	Notes         string `json:"notes,omitempty" yaml:"notes"`
}

type Consultation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ExpertID      string    `json:"expertId"`
	ServiceType   string    `json:"serviceType,omitempty"`
	ScheduledDate string    `json:"scheduledDate,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Status        string    `json:"status"`
	MeetingLink   string    `json:"meetingLink,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PricingPlan prices are strings: "0" is free and "Custom" means
// contact sales.
type PricingPlan struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	UserType  string   `json:"userType"`
	Price     string   `json:"price"`
	Features  []string `json:"features"`
	IsPopular bool     `json:"isPopular"`
	Active    bool     `json:"active"`
}

type RecentForm struct {
	ID           string `json:"id"`
	FormType     string `json:"formType"`
	Status       string `json:"status"`
	FilingDate   string `json:"filingDate,omitempty"`
	RefundAmount string `json:"refundAmount,omitempty"`
}

type DashboardStats struct {
	TotalItrForms   int          `json:"totalItrForms"`
	TotalGstReturns int          `json:"totalGstReturns"`
	TotalTdsReturns int          `json:"totalTdsReturns"`
	TotalDocuments  int          `json:"totalDocuments"`
	ExpectedRefund  float64      `json:"expectedRefund"`
	RecentForms     []RecentForm `json:"recentForms"`
}
