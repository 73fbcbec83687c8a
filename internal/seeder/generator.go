package seeder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/shopfront/shopctl/internal/client"
)

const imageSize = 64

// Item is one generated product, with its image when images are enabled.
type Item struct {
	Fields client.ProductFields
	Image  *client.Upload
}

// Generator produces product fields from a seeded faker, so the same seed
// always yields the same catalog.
type Generator struct {
	faker    *gofakeit.Faker
	defaults DefaultsConfig
}

// NewGenerator creates a generator. A zero seed picks a random one.
func NewGenerator(defaults DefaultsConfig) *Generator {
	return &Generator{
		faker:    gofakeit.New(defaults.Seed),
		defaults: defaults,
	}
}

// Generate creates the index'th item. Not safe for concurrent use.
func (g *Generator) Generate(index int) Item {
	f := g.faker
	d := g.defaults

	name := f.ProductName()
	fields := client.ProductFields{
		Name:         name,
		Description:  fmt.Sprintf("%s. %s", strings.TrimSuffix(f.ProductDescription(), "."), f.ProductCategory()),
		Price:        roundPrice(f.Float64Range(d.PriceMin, d.PriceMax)),
		Quantity:     f.Number(1, d.MaxQuantity),
		Manufacturer: f.Company(),
	}

	if f.Float64Range(0, 1) < d.OutOfStockRatio {
		fields.Quantity = 0
	}
	if len(d.Regions) > 0 {
		fields.Region = d.Regions[f.Number(0, len(d.Regions)-1)]
	}
	if len(d.CategoryIDs) > 0 {
		fields.CategoryID = d.CategoryIDs[f.Number(0, len(d.CategoryIDs)-1)]
	}

	item := Item{Fields: fields}
	if d.WithImages {
		item.Image = placeholderImage(index, f.Number(0, 0xffffff))
	}
	return item
}

func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

// placeholderImage renders a small solid-colour PNG.
func placeholderImage(index int, rgb int) *client.Upload {
	img := image.NewRGBA(image.Rect(0, 0, imageSize, imageSize))
	fill := color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff}
	for y := 0; y < imageSize; y++ {
		for x := 0; x < imageSize; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	// Encoding an in-memory RGBA image cannot fail.
	_ = png.Encode(&buf, img)

	return &client.Upload{
		Filename:    fmt.Sprintf("product-%d.png", index),
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}
}
