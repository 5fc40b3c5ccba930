package service

// QRCodeService renders share links as QR codes.
type QRCodeService interface {
	// GenerateShareQR returns a PNG encoding shareURL.
	GenerateShareQR(shareURL string) ([]byte, error)
}
