package domain

// CurrencySize is the encoded length: Quota(113) ‖ wallet_certificate(33).
const CurrencySize = QuotaSize + CertificateSize

// Currency binds a quota to the wallet that holds it.
type Currency struct {
	Quota  Quota
	Wallet Certificate
}

// NewCurrency binds q to wallet.
func NewCurrency(q Quota, wallet Certificate) *Currency {
	return &Currency{Quota: q, Wallet: wallet}
}

// Bytes returns the concatenation of the quota and wallet encodings.
func (c *Currency) Bytes() []byte {
	b := make([]byte, 0, CurrencySize)
	b = append(b, c.Quota.Bytes()...)
	return append(b, c.Wallet[:]...)
}

// DecodeCurrency decodes a 146-byte currency record.
func DecodeCurrency(b []byte) (*Currency, error) {
	if len(b) != CurrencySize {
		return nil, ErrLengthMismatch.WithDetailsf("currency: got %d bytes, want %d", len(b), CurrencySize)
	}
	q, err := DecodeQuota(b[:QuotaSize])
	if err != nil {
		return nil, ErrFieldInvalid.WithDetails("currency: quota").WithCause(err)
	}
	wallet, err := DecodeCertificate(b[QuotaSize:])
	if err != nil {
		return nil, ErrFieldInvalid.WithDetails("currency: wallet certificate").WithCause(err)
	}
	return &Currency{Quota: *q, Wallet: wallet}, nil
}
