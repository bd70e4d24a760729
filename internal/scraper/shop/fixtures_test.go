package shop

import (
	"fmt"
	"strings"
)

// cardHTML renders a WooCommerce listing card. Empty arguments leave the
// corresponding element out.
func cardHTML(title, price, image string) string {
	var b strings.Builder
	b.WriteString(`<li class="product type-product">`)
	if image != "" {
		fmt.Fprintf(&b, `<img class="attachment-woocommerce_thumbnail size-woocommerce_thumbnail" src="data:image/svg+xml,%%3Csvg%%3E" data-lazy-src="%s">`, image)
	}
	if title != "" {
		fmt.Fprintf(&b, `<h2 class="woo-loop-product__title"><a href="#">%s</a></h2>`, title)
	}
	if price != "" {
		fmt.Fprintf(&b, `<span class="price"><span class="woocommerce-Price-amount amount"><bdi>%s</bdi></span></span>`, price)
	}
	b.WriteString(`</li>`)
	return b.String()
}

// listingHTML wraps cards in a shop page.
func listingHTML(cards ...string) string {
	return `<html><body><ul class="products columns-4">` + strings.Join(cards, "") + `</ul></body></html>`
}
