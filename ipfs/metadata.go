package ipfs

import (
	"strings"
	"time"
)

// GeneratorName is the value of the "Generated By" trait.
const GeneratorName = "AI NFT Generator"

// Attribute is one ERC-721 metadata trait.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata is the token metadata document pinned for a mint.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// NewMetadata builds the metadata for an image. image may be a bare CID or
// an ipfs:// URL; the result always carries the ipfs:// form. The creation
// date is created in UTC, formatted YYYY-MM-DD.
func NewMetadata(name, description, image string, created time.Time) Metadata {
	if !strings.HasPrefix(image, "ipfs://") {
		image = "ipfs://" + image
	}
	return Metadata{
		Name:        name,
		Description: description,
		Image:       image,
		Attributes: []Attribute{
			{TraitType: "Generated By", Value: GeneratorName},
			{TraitType: "Creation Date", Value: created.UTC().Format(time.DateOnly)},
		},
	}
}
