package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tomasvik/threadline-go/internal/domain"
	"github.com/tomasvik/threadline-go/internal/store"
)

var seedProducts = []domain.Product{
	{Name: "Classic White T-Shirt", Description: "Premium cotton white t-shirt with a comfortable fit. Perfect for casual wear.", Price: 59900, Image: "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=500", Category: domain.CategoryMen, Sizes: []domain.Size{domain.SizeS, domain.SizeM, domain.SizeL, domain.SizeXL, domain.SizeXXL}, Stock: 50, Featured: true},
	{Name: "Black Denim Jeans", Description: "Slim fit black denim jeans with stretch fabric for comfort.", Price: 149900, Image: "https://images.unsplash.com/photo-1542272604-787c3835535d?w=500", Category: domain.CategoryMen, Sizes: []domain.Size{domain.SizeM, domain.SizeL, domain.SizeXL, domain.SizeXXL}, Stock: 40},
	{Name: "Navy Blue Hoodie", Description: "Warm and cozy hoodie with kangaroo pocket. Perfect for winter.", Price: 129900, Image: "https://images.unsplash.com/photo-1556821840-3a63f95609a7?w=500", Category: domain.CategoryMen, Sizes: []domain.Size{domain.SizeS, domain.SizeM, domain.SizeL, domain.SizeXL}, Stock: 35, Featured: true},
	{Name: "Leather Jacket", Description: "Premium leather jacket with zipper closure. Classic biker style.", Price: 499900, Image: "https://images.unsplash.com/photo-1551028719-00167b16eac5?w=500", Category: domain.CategoryMen, Sizes: []domain.Size{domain.SizeM, domain.SizeL, domain.SizeXL}, Stock: 20, Featured: true},
	{Name: "Striped Polo Shirt", Description: "Casual striped polo shirt with collar. Great for semi-formal occasions.", Price: 89900, Image: "https://images.unsplash.com/photo-1586363104862-3a5e2ab60d99?w=500", Category: domain.CategoryMen, Sizes: []domain.Size{domain.SizeS, domain.SizeM, domain.SizeL, domain.SizeXL, domain.SizeXXL}, Stock: 45},
	{Name: "Floral Summer Dress", Description: "Light floral dress for warm days, with a relaxed silhouette.", Price: 159900, Image: "https://images.unsplash.com/photo-1515372039744-b8f02a3ae446?w=500", Category: domain.CategoryWomen, Sizes: []domain.Size{domain.SizeXS, domain.SizeS, domain.SizeM, domain.SizeL}, Stock: 30, Featured: true},
	{Name: "High-Waist Leggings", Description: "Stretchy high-waist leggings for workouts and lounging.", Price: 79900, Image: "https://images.unsplash.com/photo-1506629082955-511b1aa562c8?w=500", Category: domain.CategoryWomen, Sizes: []domain.Size{domain.SizeXS, domain.SizeS, domain.SizeM, domain.SizeL, domain.SizeXL}, Stock: 60},
	{Name: "Denim Jacket", Description: "Timeless denim jacket with button front and chest pockets.", Price: 199900, Image: "https://images.unsplash.com/photo-1527016021513-b09758b777bd?w=500", Category: domain.CategoryWomen, Sizes: []domain.Size{domain.SizeS, domain.SizeM, domain.SizeL}, Stock: 25, Featured: true},
	{Name: "Kids Dinosaur T-Shirt", Description: "Fun dinosaur print t-shirt in soft cotton.", Price: 39900, Image: "https://images.unsplash.com/photo-1519238263530-99bdd11df2ea?w=500", Category: domain.CategoryKids, Sizes: []domain.Size{domain.SizeXS, domain.SizeS, domain.SizeM}, Stock: 70},
	{Name: "Kids Rainbow Hoodie", Description: "Bright rainbow hoodie to keep the little ones warm.", Price: 69900, Image: "https://images.unsplash.com/photo-1503919545889-aef636e10ad4?w=500", Category: domain.CategoryKids, Sizes: []domain.Size{domain.SizeXS, domain.SizeS, domain.SizeM, domain.SizeL}, Stock: 40, Featured: true},
	{Name: "Oversized Flannel Shirt", Description: "Unisex oversized flannel in classic check.", Price: 119900, Image: "https://images.unsplash.com/photo-1589310243389-96a5483213a8?w=500", Category: domain.CategoryUnisex, Sizes: []domain.Size{domain.SizeS, domain.SizeM, domain.SizeL, domain.SizeXL, domain.SizeXXL}, Stock: 55},
	{Name: "Canvas Baseball Cap", Description: "Adjustable canvas cap, one style fits all seasons.", Price: 49900, Image: "https://images.unsplash.com/photo-1588850561407-ed78c282e89b?w=500", Category: domain.CategoryUnisex, Sizes: []domain.Size{domain.SizeM, domain.SizeL}, Stock: 80},
}

func main() {
	var (
		databaseURL = flag.String("database-url", strings.TrimSpace(os.Getenv("DATABASE_URL")), "postgres connection string")
		withAdmin   = flag.Bool("with-admin", true, "create a demo admin user")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("DATABASE_URL or -database-url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := store.Connect(ctx, *databaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()

	if err := store.InitSchema(ctx, pool); err != nil {
		log.Fatalf("schema init error: %v", err)
	}

	products := store.NewProducts(pool)
	for i := range seedProducts {
		p := seedProducts[i]
		if err := products.Create(ctx, &p); err != nil {
			log.Fatalf("seed product %q: %v", p.Name, err)
		}
		log.Printf("seeded %s (%s)", p.Name, p.ID)
	}

	if *withAdmin {
		users := store.NewUsers(pool)
		admin := &domain.User{Name: "Store Admin", Email: "admin@threadline.example", Admin: true}
		if err := users.Create(ctx, admin); err != nil {
			log.Fatalf("seed admin user: %v", err)
		}
		log.Printf("seeded admin user %s", admin.ID)
	}

	log.Printf("done: %d products", len(seedProducts))
}
