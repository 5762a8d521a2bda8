// Command simulate seeds pending orders and replays Pallapay callbacks against
// a running bridge, then prints what each order ended up as.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pallapay-bridge/internal/config"
	"pallapay-bridge/internal/database"
	"pallapay-bridge/internal/domain"
	"pallapay-bridge/internal/handler"
	"pallapay-bridge/internal/infrastructure/pallapay"
	"pallapay-bridge/internal/repo"
)

type scenario struct {
	name    string
	status  string
	amount  string
	forge   bool
	replays int
}

var scenarios = []scenario{
	{name: "paid in full", status: "PAID", amount: "10.00"},
	{name: "paid, callback replayed", status: "PAID", amount: "10.00", replays: 2},
	{name: "declined", status: "DECLINED", amount: "10.00"},
	{name: "underpaid", status: "PAID", amount: "9.99"},
	{name: "forged hash", status: "PAID", amount: "10.00", forge: true},
}

func main() {
	target := flag.String("target", "http://localhost:8080", "bridge base URL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.NewPostgres(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	orderRepo := repo.NewOrderRepo(db)
	store := repo.NewStore(db, orderRepo, repo.NewCartRepo(db), repo.NewPaymentRepo(db))
	client := resty.New().SetBaseURL(*target).SetTimeout(5 * time.Second)
	secret := cfg.Gateway.Credentials.SecretKey

	fmt.Printf("--- STARTING SIMULATION (%d ORDERS) ---\n", len(scenarios))
	for i, sc := range scenarios {
		order, err := seedOrder(ctx, store)
		if err != nil {
			log.Printf("Create Failed: %v", err)
			continue
		}

		fmt.Printf("[%d] %s, order %s\n", i+1, sc.name, order.ID)
		for n := 0; n <= sc.replays; n++ {
			reply, code, err := postCallback(client, secret, order.ID, sc)
			if err != nil {
				fmt.Printf("    -> callback FAILED: %v\n", err)
				continue
			}
			fmt.Printf("    -> callback %d: %d %q\n", n+1, code, reply)
		}

		fresh, err := orderRepo.FindById(ctx, order.ID)
		if err != nil {
			log.Printf("Reload Failed: %v", err)
			continue
		}
		fmt.Printf("    -> DB Status: %s\n", fresh.Status)
		notes, _ := orderRepo.FindNotes(ctx, order.ID)
		for _, n := range notes {
			fmt.Printf("       note: %s\n", n.Note)
		}
		fmt.Println("---------------------------------------------------")
	}
}

func seedOrder(ctx context.Context, store *repo.Store) (*domain.Order, error) {
	now := time.Now()
	order := &domain.Order{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		Total:            decimal.RequireFromString("10.00"),
		Currency:         "USD",
		Status:           domain.OrderPending,
		BillingEmail:     "buyer@example.com",
		BillingFirstName: "Sim",
		BillingLastName:  "Buyer",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	item := repo.CartItem{ID: uuid.New(), UserID: order.UserID, ProductID: "sku-1", Quantity: 1}
	return order, store.CreateOrder(ctx, order, item)
}

func postCallback(client *resty.Client, secret string, orderID uuid.UUID, sc scenario) (string, int, error) {
	data := map[string]any{
		"note":           orderID.String(),
		"status":         sc.status,
		"payment_amount": sc.amount,
		"ref_id":         "SIM-" + uuid.NewString()[:8],
	}
	hash := pallapay.CallbackSignature(secret, data)
	if sc.forge {
		hash = pallapay.CallbackSignature("not-the-secret", data)
	}

	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"data": data, "approval_hash": hash}).
		Post(handler.CallbackPath)
	if err != nil {
		return "", 0, err
	}
	return resp.String(), resp.StatusCode(), nil
}
