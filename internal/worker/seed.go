package worker

import "math/rand/v2"

// Product tag pool shared by suppliers and need generation.
var productTags = []string{
	"eco-friendly", "quiet", "budget", "fast-delivery",
	"premium", "limited-edition", "new-arrival",
}

// One supplier exists per category; each seeds ten products.
var supplierCategories = []string{
	"Travel",
	"Electronics",
	"Events",
	"Financial Services",
	"Clothing",
	"Home",
	"Books",
	"Food",
	"Health",
	"Automotive",
}

var productsByCategory = map[string][]string{
	"Travel": {
		"Flight to Paris", "Hotel in Tokyo", "Car Rental California",
		"Cruise Caribbean", "Travel Insurance", "Tour Guide Italy",
		"Rail Pass Europe", "Theme Park Tickets", "Airport Lounge Access",
		"City Sightseeing Bus",
	},
	"Electronics": {
		"Smartphone X12", "Laptop Pro 15", "Wireless Earbuds",
		"Smartwatch Series 5", "4K OLED TV", "Bluetooth Speaker",
		"Drone Aerial", "Gaming Console Z", "Portable Charger",
		"Action Camera",
	},
	"Events": {
		"Concert Ticket", "Festival Pass", "Theater Matinee",
		"Sports Game VIP", "Conference Admission", "Art Expo Entry",
		"Workshop Workshop", "Film Premiere", "Charity Gala",
		"Networking Meetup",
	},
	"Financial Services": {
		"Savings Account", "Home Loan", "Car Insurance",
		"Credit Card Platinum", "Investment Portfolio",
		"Retirement Plan", "Tax Advisory", "Mortgage Refinance",
		"Student Loan", "Health Insurance",
	},
	"Clothing": {
		"Designer T-Shirt", "Jeans Classic", "Running Shoes",
		"Leather Jacket", "Summer Dress", "Winter Coat",
		"Baseball Cap", "Sneakers", "Sunglasses", "Scarf",
	},
	"Home": {
		"Sofa Set", "Dining Table", "Queen Bed",
		"LED Lamp", "Rug 5x8", "Wardrobe",
		"Kitchen Mixer", "Coffee Maker", "Vacuum Cleaner",
		"Air Purifier",
	},
	"Books": {
		"Bestseller Novel", "Science Textbook", "Children's Book",
		"Cookbook Gourmet", "History Biography", "Graphic Novel",
		"Language Guide", "Photography Book", "Poetry Collection",
		"Travel Guide",
	},
	"Food": {
		"Organic Coffee Beans", "Gourmet Chocolate", "Artisan Bread",
		"Premium Olive Oil", "Spice Set", "Cheese Sampler",
		"Exotic Tea", "Wine Bottle", "Canned Truffles", "Fruit Basket",
	},
	"Health": {
		"Vitamin D Supplements", "Yoga Mat", "Fitness Tracker",
		"Protein Powder", "First Aid Kit", "Thermometer",
		"Massage Oil", "Healthy Meal Plan", "Blood Pressure Monitor",
		"Prescription Delivery",
	},
	"Automotive": {
		"Car Wash Pass", "Oil Change Service", "Tire Rotation",
		"GPS Navigation Unit", "Dash Cam", "Seat Covers",
		"Bluetooth Car Kit", "Roof Rack", "Motor Oil 5W-30",
		"Jump Starter",
	},
}

// sampleTags picks k distinct tags from the pool.
func sampleTags(k int) []string {
	idx := rand.Perm(len(productTags))
	if k > len(idx) {
		k = len(idx)
	}
	tags := make([]string, k)
	for i := 0; i < k; i++ {
		tags[i] = productTags[idx[i]]
	}
	return tags
}

// randomPrice draws a price in [10, 500) rounded to cents.
func randomPrice() float64 {
	p := 10 + rand.Float64()*490
	return float64(int(p*100)) / 100
}
