package product

import (
	"strings"
	"time"
)

// Product is an item of the print catalogue. The same name may exist once as
// a regular product and once as a VIP product.
type Product struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	IsVIP     bool      `yaml:"is_vip" json:"isVip"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}

// SameKey reports whether p and o collide on the (name, is_vip) constraint.
// Names compare case-insensitively after trimming.
func (p *Product) SameKey(o *Product) bool {
	return p.IsVIP == o.IsVIP && strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(o.Name))
}
