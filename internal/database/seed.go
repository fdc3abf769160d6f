package database

import (
	"context"
	"fmt"
	"time"

	"farmlink/internal/models"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "farmlink123"

var (
	DemoFarmerID   = demoID("farmer")
	DemoConsumerID = demoID("consumer")
	DemoAdminID    = demoID("admin")
)

func demoID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("farmlink:demo:"+name)).String()
}

var ist = time.FixedZone("IST", 5*60*60+30*60)

func at(month time.Month, day, hour, min int) *time.Time {
	t := time.Date(2026, month, day, hour, min, 0, 0, ist)
	return &t
}

func done(stage models.Stage, ts *time.Time, description, location string) models.TrackingEvent {
	ev := models.NewTrackingEvent(stage)
	ev.Description = description
	ev.Location = location
	ev.Completed = true
	ev.Timestamp = ts
	return ev
}

func pending(stage models.Stage, description string) models.TrackingEvent {
	ev := models.NewTrackingEvent(stage)
	ev.Description = description
	return ev
}

// SampleOrders returns the demo orders with their lots. Every call builds fresh values.
func SampleOrders() []models.Order {
	orders := []models.Order{
		{
			ID:         "ORD-1245",
			LotID:      "LOT-GVF-2026-0206A",
			Items:      "Organic Tomatoes (3kg), Spinach (2 bunches)",
			Total:      "₹195",
			Date:       *at(time.February, 6, 9, 0),
			Status:     models.OrderStatusInTransit,
			Consumer:   "Priya Sharma",
			ConsumerID: DemoConsumerID,
			Farm:       "Green Valley Farm",
			FarmerID:   DemoFarmerID,
			ETA:        "Today by 2 PM",
			TrackingEvents: []models.TrackingEvent{
				done(models.StageHarvest, at(time.February, 5, 6, 0), "Organic tomatoes and spinach picked fresh from field B3", "Green Valley Farm, Nashik"),
				done(models.StageQuality, at(time.February, 5, 8, 30), "Grade A, passed pesticide residue test, freshness verified", "Farm QC Lab"),
				done(models.StagePacked, at(time.February, 5, 10, 0), "Packed in eco-friendly crates with QR traceability tag", "Green Valley Packhouse"),
				done(models.StageShipped, at(time.February, 5, 14, 0), "Dispatched via cold-chain logistics, vehicle MH-12-AB-1234", "Nashik Distribution Hub"),
				done(models.StageInTransit, at(time.February, 6, 10, 0), "En route to delivery address, ETA 2:00 PM", "Mumbai, Maharashtra"),
				pending(models.StageDelivered, "Awaiting delivery confirmation"),
			},
			Traceability: &models.TraceabilityRecord{
				LotID:           "LOT-GVF-2026-0206A",
				Product:         "Organic Tomatoes & Spinach",
				Farm:            "Green Valley Farm",
				FarmLocation:    "Nashik, Maharashtra",
				HarvestDate:     "Feb 5, 2026",
				QualityGrade:    "Grade A",
				QualityScanDate: "Feb 5, 2026",
				Temperature:     "4°C (Cold Chain)",
				Certifications:  models.StringSlice{"Organic India", "FSSAI", "No Pesticides"},
			},
		},
		{
			ID:       "ORD-1242",
			LotID:    "LOT-GF-2026-0203B",
			Items:    "Basmati Rice (5kg)",
			Total:    "₹425",
			Date:     *at(time.February, 4, 9, 0),
			Status:   models.OrderStatusShipped,
			Consumer: "Amit Kumar",
			Farm:     "Golden Fields",
			FarmerID: DemoFarmerID,
			ETA:      "Feb 7 by 5 PM",
			TrackingEvents: []models.TrackingEvent{
				done(models.StageHarvest, at(time.February, 3, 7, 0), "Basmati paddy harvested from plot 12", "Golden Fields, Dehradun"),
				done(models.StageQuality, at(time.February, 3, 12, 0), "Grade A+, moisture content 12%, grain length verified", "Farm Mill Lab"),
				done(models.StagePacked, at(time.February, 3, 16, 0), "Vacuum-sealed 5kg bags with QR code", "Golden Fields Warehouse"),
				done(models.StageShipped, at(time.February, 4, 9, 0), "Dispatched via standard logistics", "Dehradun Logistics Hub"),
				pending(models.StageInTransit, "Awaiting transit update"),
				pending(models.StageDelivered, "Awaiting delivery"),
			},
			Traceability: &models.TraceabilityRecord{
				LotID:           "LOT-GF-2026-0203B",
				Product:         "Basmati Rice",
				Farm:            "Golden Fields",
				FarmLocation:    "Dehradun, Uttarakhand",
				HarvestDate:     "Feb 3, 2026",
				QualityGrade:    "Grade A+",
				QualityScanDate: "Feb 3, 2026",
				Certifications:  models.StringSlice{"FSSAI", "GI Tagged"},
			},
		},
		{
			ID:       "ORD-1240",
			LotID:    "LOT-MP-2026-0201C",
			Items:    "Alphonso Mangoes (1 dozen)",
			Total:    "₹250",
			Date:     *at(time.February, 2, 9, 0),
			Status:   models.OrderStatusDelivered,
			Consumer: "Neha Reddy",
			Farm:     "Mango Paradise",
			FarmerID: DemoFarmerID,
			TrackingEvents: []models.TrackingEvent{
				done(models.StageHarvest, at(time.February, 1, 6, 30), "Hand-picked Alphonso mangoes from orchard A1", "Mango Paradise, Ratnagiri"),
				done(models.StageQuality, at(time.February, 1, 9, 0), "Grade A, Brix level 18°, no bruising detected", "Farm QC Station"),
				done(models.StagePacked, at(time.February, 1, 11, 0), "Packed in mango-specific cushioned boxes with QR tag", "Ratnagiri Packhouse"),
				done(models.StageShipped, at(time.February, 1, 15, 0), "Cold-chain dispatch, vehicle MH-08-CD-5678", "Ratnagiri Hub"),
				done(models.StageInTransit, at(time.February, 2, 8, 0), "Arrived at local distribution center", "Hyderabad DC"),
				done(models.StageDelivered, at(time.February, 2, 13, 30), "Successfully delivered, signed by Neha Reddy", "Hyderabad"),
			},
			Traceability: &models.TraceabilityRecord{
				LotID:           "LOT-MP-2026-0201C",
				Product:         "Alphonso Mangoes",
				Farm:            "Mango Paradise",
				FarmLocation:    "Ratnagiri, Maharashtra",
				HarvestDate:     "Feb 1, 2026",
				QualityGrade:    "Grade A",
				QualityScanDate: "Feb 1, 2026",
				Temperature:     "8°C (Cold Chain)",
				Certifications:  models.StringSlice{"GI Tagged", "FSSAI", "Organic India"},
			},
		},
		{
			ID:       "ORD-1238",
			LotID:    "LOT-SF-2026-0131D",
			Items:    "Potatoes (10kg)",
			Total:    "₹250",
			Date:     *at(time.February, 1, 9, 0),
			Status:   models.OrderStatusDelivered,
			Consumer: "Vikram Singh",
			Farm:     "Sunrise Farms",
			FarmerID: DemoFarmerID,
			TrackingEvents: []models.TrackingEvent{
				done(models.StageHarvest, at(time.January, 31, 7, 0), "Fresh potatoes from field C2", "Sunrise Farms, Agra"),
				done(models.StageQuality, at(time.January, 31, 10, 0), "Grade B+, size and weight verified", ""),
				done(models.StagePacked, at(time.January, 31, 13, 0), "Packed in 10kg jute bags", ""),
				done(models.StageShipped, at(time.January, 31, 16, 0), "Dispatched via road transport", ""),
				done(models.StageInTransit, at(time.February, 1, 9, 0), "Arrived at local hub", ""),
				done(models.StageDelivered, at(time.February, 1, 15, 0), "Successfully delivered", ""),
			},
			Traceability: &models.TraceabilityRecord{
				LotID:          "LOT-SF-2026-0131D",
				Product:        "Potatoes",
				Farm:           "Sunrise Farms",
				FarmLocation:   "Agra, Uttar Pradesh",
				HarvestDate:    "Jan 31, 2026",
				QualityGrade:   "Grade B+",
				Certifications: models.StringSlice{"FSSAI"},
			},
		},
		{
			ID:       "ORD-1235",
			LotID:    "LOT-SV-2026-0130E",
			Items:    "Green Chilies (2kg)",
			Total:    "₹120",
			Date:     *at(time.January, 30, 9, 0),
			Status:   models.OrderStatusCancelled,
			Consumer: "Lata Devi",
			Farm:     "Spice Valley",
			FarmerID: DemoFarmerID,
			TrackingEvents: []models.TrackingEvent{
				done(models.StageHarvest, at(time.January, 30, 7, 0), "Green chilies picked from greenhouse G1", "Spice Valley, Guntur"),
				{
					Type:        models.StageQuality,
					Title:       "Order Cancelled",
					Description: "Cancelled by customer before packing",
				},
			},
			Traceability: &models.TraceabilityRecord{
				LotID:          "LOT-SV-2026-0130E",
				Product:        "Green Chilies",
				Farm:           "Spice Valley",
				FarmLocation:   "Guntur, Andhra Pradesh",
				HarvestDate:    "Jan 30, 2026",
				QualityGrade:   "N/A",
				Certifications: models.StringSlice{"FSSAI"},
			},
		},
	}
	for i := range orders {
		orders[i].EnsureTimeline()
	}
	return orders
}

// SampleProducts returns the demo listings of the seeded farmer.
func SampleProducts() []models.Product {
	listing := func(name string, price, aiPrice float64, unit string, stock int, grade string, organic bool) models.Product {
		return models.Product{
			FarmerID: DemoFarmerID,
			Farmer:   "Rajesh Kumar",
			Farm:     "Green Valley Farm",
			Name:     name,
			Price:    price,
			AIPrice:  aiPrice,
			Unit:     unit,
			Stock:    stock,
			Grade:    grade,
			Organic:  organic,
		}
	}
	return []models.Product{
		listing("Organic Tomatoes", 45, 48, "kg", 120, "A+", true),
		listing("Basmati Rice", 85, 82, "kg", 500, "A", false),
		listing("Fresh Spinach", 30, 32, "bunch", 60, "A+", true),
		listing("Alphonso Mangoes", 250, 270, "dozen", 35, "A", true),
		listing("Green Chilies", 60, 55, "kg", 40, "B+", false),
		listing("Potatoes", 25, 28, "kg", 300, "A", false),
	}
}

type demoUser struct {
	id      string
	email   string
	role    models.Role
	profile models.Profile
}

var demoUsers = []demoUser{
	{DemoFarmerID, "rajesh@farmlink.in", models.RoleFarmer, models.Profile{FullName: "Rajesh Kumar", Phone: "+91 98765 43210", FarmName: "Green Valley Farm"}},
	{DemoConsumerID, "priya@farmlink.in", models.RoleConsumer, models.Profile{FullName: "Priya Sharma", Phone: "+91 91234 56789"}},
	{DemoAdminID, "admin@farmlink.in", models.RoleAdmin, models.Profile{FullName: "FarmLink Admin"}},
}

// Seed inserts the demo accounts, orders and listings into empty tables.
// hash turns DemoPassword into the stored password hash.
func Seed(ctx context.Context, db *gorm.DB, hash func(string) (string, error)) error {
	var userCount int
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if userCount == 0 {
		digest, err := hash(DemoPassword)
		if err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}
		users := NewUserStore(db)
		for _, d := range demoUsers {
			user := &models.User{ID: d.id, Email: d.email, PasswordHash: digest, Role: d.role}
			profile := d.profile
			if err := users.CreateUser(ctx, user, &profile); err != nil {
				return err
			}
		}
	}

	var orderCount int
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		return fmt.Errorf("failed to count orders: %w", err)
	}
	if orderCount == 0 {
		orders := NewOrderStore(db)
		for _, o := range SampleOrders() {
			order := o
			if err := orders.CreateOrder(ctx, &order); err != nil {
				return fmt.Errorf("failed to seed order %s: %w", o.ID, err)
			}
		}
	}

	var productCount int
	if err := db.Model(&models.Product{}).Count(&productCount).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if productCount == 0 {
		products := NewProductStore(db)
		for _, p := range SampleProducts() {
			product := p
			if err := products.CreateProduct(ctx, &product); err != nil {
				return err
			}
		}
	}
	return nil
}
