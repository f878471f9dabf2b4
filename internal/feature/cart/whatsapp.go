package cart

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrEmptyCart      = errors.New("el carrito está vacío")
	ErrMissingContact = errors.New("faltan datos de contacto")
)

// Contact 结账时要带上的联系人信息
type Contact struct {
	Nombre   string
	Apellido string
	Celular  string
}

func (c Contact) complete() bool {
	return strings.TrimSpace(c.Nombre) != "" &&
		strings.TrimSpace(c.Apellido) != "" &&
		strings.TrimSpace(c.Celular) != ""
}

// CheckoutLink 把当前车况序列化成 WhatsApp 深链。
// 没有任何服务端订单：下单动作就是打开这个链接。
func (s *Store) CheckoutLink(phone string, contact Contact) (string, error) {
	if !contact.complete() {
		return "", ErrMissingContact
	}
	items := s.Items()
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	var b strings.Builder
	b.WriteString("Hola! Me gustaría comprar los siguientes productos:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %dx %s ($%s)\n", it.Quantity, it.Name, formatPrice(it.Price))
	}
	fmt.Fprintf(&b, "\nTotal: $%s\n", formatPrice(s.Total()))
	b.WriteString("\nDatos de contacto:\n")
	fmt.Fprintf(&b, "Nombre: %s\n", contact.Nombre)
	fmt.Fprintf(&b, "Apellido: %s\n", contact.Apellido)
	fmt.Fprintf(&b, "Celular: %s", contact.Celular)

	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(b.String()), nil
}

// formatPrice 分 → 元，小数位按需（4999 → "49.99"，3000 → "30"）
func formatPrice(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', -1, 64)
}
