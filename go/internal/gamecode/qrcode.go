package gamecode

import qr "github.com/skip2/go-qrcode"

// JoinQR renders the join link for a code as a QR PNG for on-screen sharing.
func JoinQR(baseURL, code string) ([]byte, error) {
	return qr.Encode(JoinURL(baseURL, code), qr.Medium, 256)
}
