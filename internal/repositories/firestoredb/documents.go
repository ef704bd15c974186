package firestoredb

import (
	"time"

	"casamento/internal/models"

	"github.com/shopspring/decimal"
)

// Document layouts keep the field names already used by the wedding site's
// front end, which reads these collections directly.

// paymentSummaryDoc is the present's "payment" map; the payment page reads
// payment.expiresAt for its countdown.
type paymentSummaryDoc struct {
	PaymentID   string    `firestore:"paymentId,omitempty"`
	ClaimToken  string    `firestore:"claimToken,omitempty"`
	Status      string    `firestore:"status,omitempty"`
	QRCode      string    `firestore:"qrCode,omitempty"`
	QRCodeImage string    `firestore:"qrCodeImage,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt   time.Time `firestore:"updatedAt,omitempty"`
	ExpiresAt   time.Time `firestore:"expiresAt,omitempty"`
}

type presentDoc struct {
	Name      string            `firestore:"nome"`
	Price     float64           `firestore:"preco"`
	ImageURL  string            `firestore:"imagemUrl,omitempty"`
	Reserved  bool              `firestore:"reservado"`
	Payment   paymentSummaryDoc `firestore:"payment"`
	CreatedAt time.Time         `firestore:"createdAt,omitempty"`
	UpdatedAt time.Time         `firestore:"updatedAt,omitempty"`
}

func presentToDoc(p *models.Present) presentDoc {
	price, _ := p.Price.Float64()
	return presentDoc{
		Name:     p.Name,
		Price:    price,
		ImageURL: p.ImageURL,
		Reserved: p.Reserved,
		Payment: paymentSummaryDoc{
			PaymentID:   p.Payment.PaymentID,
			ClaimToken:  p.Payment.ClaimToken,
			Status:      p.Payment.Status,
			QRCode:      p.Payment.QRCode,
			QRCodeImage: p.Payment.QRCodeImage,
			CreatedAt:   p.Payment.ClaimedAt,
			UpdatedAt:   p.Payment.StatusAt,
			ExpiresAt:   p.Payment.ExpiresAt,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func presentFromDoc(id string, d presentDoc) models.Present {
	return models.Present{
		ID:       id,
		Name:     d.Name,
		Price:    decimal.NewFromFloat(d.Price).Round(2),
		ImageURL: d.ImageURL,
		Reserved: d.Reserved,
		Payment: models.PaymentSummary{
			PaymentID:   d.Payment.PaymentID,
			ClaimToken:  d.Payment.ClaimToken,
			Status:      d.Payment.Status,
			QRCode:      d.Payment.QRCode,
			QRCodeImage: d.Payment.QRCodeImage,
			ClaimedAt:   d.Payment.CreatedAt,
			StatusAt:    d.Payment.UpdatedAt,
			ExpiresAt:   d.Payment.ExpiresAt,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type paymentDoc struct {
	PresentID     string                 `firestore:"presentId"`
	ClaimToken    string                 `firestore:"claim_token,omitempty"`
	Title         string                 `firestore:"title"`
	Amount        float64                `firestore:"amount"`
	Status        string                 `firestore:"status"`
	GatewayStatus string                 `firestore:"mp_status,omitempty"`
	GatewayID     string                 `firestore:"mp_id"`
	PayerEmail    string                 `firestore:"payer_email,omitempty"`
	QRCode        string                 `firestore:"qr_code,omitempty"`
	RawResponse   map[string]interface{} `firestore:"rawResponse,omitempty"`
	ExpiresAt     time.Time              `firestore:"expiresAt,omitempty"`
	CreatedAt     time.Time              `firestore:"createdAt"`
	UpdatedAt     time.Time              `firestore:"updatedAt"`
}

func paymentToDoc(p *models.Payment) paymentDoc {
	amount, _ := p.Amount.Float64()
	return paymentDoc{
		PresentID:     p.PresentID,
		ClaimToken:    p.ClaimToken,
		Title:         p.Title,
		Amount:        amount,
		Status:        p.Status,
		GatewayStatus: p.GatewayStatus,
		GatewayID:     p.ID,
		PayerEmail:    p.PayerEmail,
		QRCode:        p.QRCode,
		RawResponse:   p.RawResponse,
		ExpiresAt:     p.ExpiresAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func paymentFromDoc(id string, d paymentDoc) models.Payment {
	return models.Payment{
		ID:            id,
		PresentID:     d.PresentID,
		ClaimToken:    d.ClaimToken,
		Title:         d.Title,
		Amount:        decimal.NewFromFloat(d.Amount).Round(2),
		Status:        d.Status,
		GatewayStatus: d.GatewayStatus,
		PayerEmail:    d.PayerEmail,
		QRCode:        d.QRCode,
		RawResponse:   d.RawResponse,
		ExpiresAt:     d.ExpiresAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// transactionDoc mirrors a payment under presents/{id}/transactions.
type transactionDoc struct {
	PresentID     string    `firestore:"presentId"`
	Title         string    `firestore:"title"`
	Amount        float64   `firestore:"amount"`
	Status        string    `firestore:"status"`
	GatewayStatus string    `firestore:"mp_status,omitempty"`
	GatewayID     string    `firestore:"mp_id"`
	QRCode        string    `firestore:"qr_code,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func transactionFromPayment(d paymentDoc) transactionDoc {
	return transactionDoc{
		PresentID:     d.PresentID,
		Title:         d.Title,
		Amount:        d.Amount,
		Status:        d.Status,
		GatewayStatus: d.GatewayStatus,
		GatewayID:     d.GatewayID,
		QRCode:        d.QRCode,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type inviteDoc struct {
	Name            string     `firestore:"nome_convite"`
	NameLower       string     `firestore:"nome_convite_lower"`
	PIN             string     `firestore:"pin_convite"`
	Status          string     `firestore:"status"`
	MaxGuests       int        `firestore:"max_convidados"`
	ConfirmedGuests int        `firestore:"convidados_confirmados"`
	Members         []string   `firestore:"membros,omitempty"`
	ConfirmedAt     *time.Time `firestore:"confirmadoEm,omitempty"`
	DeclinedAt      *time.Time `firestore:"ausenteEm,omitempty"`
	CreatedAt       time.Time  `firestore:"createdAt,omitempty"`
	UpdatedAt       time.Time  `firestore:"updatedAt,omitempty"`
}

func inviteToDoc(i *models.Invite) inviteDoc {
	return inviteDoc{
		Name:            i.Name,
		NameLower:       i.NameLower,
		PIN:             i.PIN,
		Status:          i.Status,
		MaxGuests:       i.MaxGuests,
		ConfirmedGuests: i.ConfirmedGuests,
		Members:         i.Members,
		ConfirmedAt:     i.ConfirmedAt,
		DeclinedAt:      i.DeclinedAt,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

func inviteFromDoc(id string, d inviteDoc) models.Invite {
	status := d.Status
	if status == "" {
		status = models.InviteStatusPending
	}
	maxGuests := d.MaxGuests
	if maxGuests < 1 {
		maxGuests = 1
	}
	nameLower := d.NameLower
	if nameLower == "" {
		nameLower = models.NormalizeName(d.Name)
	}
	return models.Invite{
		ID:              id,
		Name:            d.Name,
		NameLower:       nameLower,
		PIN:             d.PIN,
		Status:          status,
		MaxGuests:       maxGuests,
		ConfirmedGuests: d.ConfirmedGuests,
		Members:         d.Members,
		ConfirmedAt:     d.ConfirmedAt,
		DeclinedAt:      d.DeclinedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type messageDoc struct {
	Name    string    `firestore:"nome"`
	Email   string    `firestore:"email,omitempty"`
	Message string    `firestore:"mensagem"`
	Date    time.Time `firestore:"data"`
}
