package shop

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"ShopScraper/internal/models"
	"ShopScraper/internal/scraper"
	"ShopScraper/utils"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// WooCommerce listing markup.
const (
	CardSelector  = "li.product"
	TitleSelector = "h2.woo-loop-product__title"
	PriceSelector = "span.woocommerce-Price-amount"
	ImageSelector = "img.attachment-woocommerce_thumbnail"
	LazySrcAttr   = "data-lazy-src"
)

// ErrExtraction marks a fragment that had to be abandoned.
var ErrExtraction = errors.New("extraction failed")

// Extraction holds the fields pulled out of one listing card.
type Extraction struct {
	Title    string
	Price    float64
	ImageURL *string
	Outcome  scraper.FieldOutcome
	Err      error
}

// Extract reads title, price and image URL from a listing card. Missing
// fields degrade to defaults; anything unexpected abandons the card with
// Outcome FieldsFailed instead of escaping to the caller.
func Extract(card *goquery.Selection) (ex Extraction) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error extracting product info: %v", r)
			ex = Extraction{
				Outcome: scraper.FieldsFailed,
				Err:     fmt.Errorf("%w: %v", ErrExtraction, r),
			}
		}
	}()

	if card == nil || len(card.Nodes) == 0 {
		return Extraction{Outcome: scraper.FieldsFailed, Err: fmt.Errorf("%w: empty fragment", ErrExtraction)}
	}

	title, titleFound := extractTitle(card)
	price, priceFound := extractPrice(card)

	ex = Extraction{
		Title:    title,
		Price:    price,
		ImageURL: extractImageURL(card),
		Outcome:  scraper.FieldsExtracted,
	}
	if !titleFound || !priceFound {
		ex.Outcome = scraper.FieldsDegraded
	}
	return ex
}

func extractTitle(card *goquery.Selection) (string, bool) {
	var b strings.Builder
	for _, n := range card.Find(TitleSelector).First().Nodes {
		writeStrippedText(&b, n)
	}
	title := b.String()
	if title == "" {
		return models.UnknownTitle, false
	}
	return title, true
}

// writeStrippedText appends every text node under n, each trimmed, with no
// separator between them.
func writeStrippedText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(strings.TrimSpace(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeStrippedText(b, c)
	}
}

func extractPrice(card *goquery.Selection) (float64, bool) {
	priceTag := card.Find(PriceSelector).First()
	if priceTag.Length() == 0 {
		return 0, false
	}
	text := strings.TrimSpace(priceTag.Text())
	if utils.CleanPrice(text) == "" {
		return 0, false
	}
	price := utils.ParsePrice(text)
	return price, price != 0 || isZero(text)
}

// isZero reports whether a price text genuinely says zero rather than
// failing to parse.
func isZero(text string) bool {
	cleaned := strings.TrimLeft(utils.CleanPrice(text), "0")
	return cleaned == "" || strings.Trim(cleaned, ".0") == ""
}

func extractImageURL(card *goquery.Selection) *string {
	src, ok := card.Find(ImageSelector).First().Attr(LazySrcAttr)
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return nil
	}
	return &src
}
