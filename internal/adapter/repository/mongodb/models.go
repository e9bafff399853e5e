package mongodb

import (
	"fmt"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// listingDocument is the stored shape of a listing in the cars collection.
type listingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Model       string             `bson:"model"`
	Year        string             `bson:"year"`
	Km          string             `bson:"km"`
	Price       string             `bson:"price"`
	City        string             `bson:"city"`
	Whatsapp    string             `bson:"whatsapp"`
	Description string             `bson:"description"`
	Created     time.Time          `bson:"created"`
	Owner       string             `bson:"owner"`
	UID         string             `bson:"uid"`
	Images      []imageDocument    `bson:"images"`
}

type imageDocument struct {
	UID  string `bson:"uid"`
	Name string `bson:"name"`
	URL  string `bson:"url"`
}

// toListingDocument converts a domain listing. An empty ID leaves _id unset
// so the repository assigns one on insert.
func toListingDocument(l *domain.Listing) (*listingDocument, error) {
	if l == nil {
		return nil, nil
	}

	docID := primitive.NilObjectID
	if l.ID != "" {
		var err error
		docID, err = primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("toListingDocument: invalid ID format '%s': %w", l.ID, err)
		}
	}

	images := make([]imageDocument, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, imageDocument{UID: img.UID, Name: img.Name, URL: img.URL})
	}

	return &listingDocument{
		ID:          docID,
		Name:        l.Name,
		Model:       l.Model,
		Year:        l.Year,
		Km:          l.Km,
		Price:       l.Price,
		City:        l.City,
		Whatsapp:    l.Whatsapp,
		Description: l.Description,
		Created:     l.Created,
		Owner:       l.Owner,
		UID:         l.UID,
		Images:      images,
	}, nil
}

func toDomainListing(d *listingDocument) *domain.Listing {
	if d == nil {
		return nil
	}
	images := make([]domain.ImageRecord, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, domain.ImageRecord{UID: img.UID, Name: img.Name, URL: img.URL})
	}
	return &domain.Listing{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Model:       d.Model,
		Year:        d.Year,
		Km:          d.Km,
		Price:       d.Price,
		City:        d.City,
		Whatsapp:    d.Whatsapp,
		Description: d.Description,
		Created:     d.Created,
		Owner:       d.Owner,
		UID:         d.UID,
		Images:      images,
	}
}

func toDomainListings(docs []*listingDocument) []*domain.Listing {
	listings := make([]*domain.Listing, 0, len(docs))
	for _, doc := range docs {
		listings = append(listings, toDomainListing(doc))
	}
	return listings
}
