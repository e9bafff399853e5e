package domain

import (
	"strings"
	"time"
)

// ImageRecord describes one uploaded photo. PreviewURL is short-lived and only
// lives in the draft; Listing keeps UID, Name and URL.
type ImageRecord struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	PreviewURL string `json:"previewUrl,omitempty"`
	URL        string `json:"url"`
}

// StorageKey is the blob key the image was uploaded under.
func (r ImageRecord) StorageKey() string {
	return ImageKey(r.UID, r.Name)
}

// ImagePrefix is the blob key prefix shared by all listing images.
const ImagePrefix = "images/"

// ImageKey builds the blob key images/{ownerID}/{name}.
func ImageKey(ownerID, name string) string {
	return ImagePrefix + ownerID + "/" + name
}

// DraftFields are the user-entered form fields of a listing. All of them are kept as
// strings, exactly as typed.
type DraftFields struct {
	Name        string `json:"name" validate:"required"`
	Model       string `json:"model" validate:"required"`
	Year        string `json:"year" validate:"required"`
	Km          string `json:"km" validate:"required"`
	Price       string `json:"price" validate:"required"`
	City        string `json:"city" validate:"required"`
	Whatsapp    string `json:"whatsapp" validate:"required,whatsapp"`
	Description string `json:"description" validate:"required"`
}

// Draft is the in-progress listing of one owner.
type Draft struct {
	OwnerID   string        `json:"ownerId"`
	Fields    DraftFields   `json:"fields"`
	Images    []ImageRecord `json:"images"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func NewDraft(ownerID string) *Draft {
	return &Draft{OwnerID: ownerID, Images: []ImageRecord{}}
}

// AddImage appends in insertion order.
func (d *Draft) AddImage(rec ImageRecord) {
	d.Images = append(d.Images, rec)
}

// FindImage returns the record with the given generated name.
func (d *Draft) FindImage(name string) (ImageRecord, bool) {
	for _, img := range d.Images {
		if img.Name == name {
			return img, true
		}
	}
	return ImageRecord{}, false
}

// RemoveImage drops the record with the given name and reports whether it was present.
func (d *Draft) RemoveImage(name string) bool {
	for i, img := range d.Images {
		if img.Name == name {
			d.Images = append(d.Images[:i], d.Images[i+1:]...)
			return true
		}
	}
	return false
}

// ImageIndex returns the position of the named record, or -1.
func (d *Draft) ImageIndex(name string) int {
	for i, img := range d.Images {
		if img.Name == name {
			return i
		}
	}
	return -1
}

// InsertImage puts rec back at index i, clamped to the current length.
// A record whose name is already present is left alone.
func (d *Draft) InsertImage(i int, rec ImageRecord) {
	if d.ImageIndex(rec.Name) >= 0 {
		return
	}
	if i < 0 || i > len(d.Images) {
		i = len(d.Images)
	}
	d.Images = append(d.Images, ImageRecord{})
	copy(d.Images[i+1:], d.Images[i:])
	d.Images[i] = rec
}

// Listing is a persisted car-for-sale record.
type Listing struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Model       string        `json:"model"`
	Year        string        `json:"year"`
	Km          string        `json:"km"`
	Price       string        `json:"price"`
	City        string        `json:"city"`
	Whatsapp    string        `json:"whatsapp"`
	Description string        `json:"description"`
	Created     time.Time     `json:"created"`
	Owner       string        `json:"owner"`
	UID         string        `json:"uid"`
	Images      []ImageRecord `json:"images"`
}

// NewListingFromDraft builds the listing document for a draft. The name is
// upper-cased so prefix search can match it case-insensitively, and preview
// references are dropped.
func NewListingFromDraft(d *Draft, owner Session) *Listing {
	images := make([]ImageRecord, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, ImageRecord{UID: img.UID, Name: img.Name, URL: img.URL})
	}
	return &Listing{
		Name:        NormalizeName(d.Fields.Name),
		Model:       d.Fields.Model,
		Year:        d.Fields.Year,
		Km:          d.Fields.Km,
		Price:       d.Fields.Price,
		City:        d.Fields.City,
		Whatsapp:    d.Fields.Whatsapp,
		Description: d.Fields.Description,
		Owner:       owner.Name,
		UID:         owner.UserID,
		Images:      images,
	}
}

// NormalizeName is the case rule shared by storage and search.
func NormalizeName(name string) string {
	return strings.ToUpper(name)
}

// Session is the identity of the caller, issued by the external identity provider.
type Session struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Upload is a raw image as received from the client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageFailure is one blob that could not be removed during teardown.
type ImageFailure struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Err  error  `json:"-"`
}

// DeleteOutcome reports what a listing teardown achieved.
type DeleteOutcome struct {
	ListingID     string         `json:"listingId"`
	ImagesDeleted int            `json:"imagesDeleted"`
	Failures      []ImageFailure `json:"failures,omitempty"`
}

// Partial is true when the document is gone but at least one blob survived.
func (o *DeleteOutcome) Partial() bool {
	return len(o.Failures) > 0
}

// SearchQuery selects listings for the feed.
type SearchQuery struct {
	// Term is matched as a prefix of the upper-cased name. Empty selects everything.
	Term    string
	OwnerID string
}
