// Package catalog holds the static list of purchasable items. The data
// mirrors the production catalog documents and never changes at runtime.
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/Gagansidh-u/studio/internal/domain"
)

type Catalog struct {
	items []domain.CatalogItem
	byID  map[string]domain.CatalogItem
}

func New() *Catalog {
	c := &Catalog{
		items: items,
		byID:  make(map[string]domain.CatalogItem, len(items)),
	}
	for _, item := range items {
		c.byID[item.ID] = item
	}

	return c
}

// All returns every catalog item in display order.
func (c *Catalog) All() []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) ByID(id string) (domain.CatalogItem, error) {
	item, ok := c.byID[id]
	if !ok {
		return domain.CatalogItem{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (c *Catalog) ByPlatform(platform string) []domain.CatalogItem {
	var out []domain.CatalogItem
	for _, item := range c.items {
		if item.Platform == platform {
			out = append(out, item)
		}
	}
	return out
}

func inr(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func usd(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var items = []domain.CatalogItem{
	// Amazon
	{
		ID: "1", Platform: "Amazon", Name: "Amazon Gift Card",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(100), PriceUSD: usd("1.50"),
		Instructions: "Visit www.amazon.in/redeem, enter the claim code and apply it to your balance.",
	},
	{
		ID: "4", Platform: "Amazon", Name: "Amazon Gift Card",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(250), PriceUSD: usd("3.00"),
		Instructions: "Visit www.amazon.in/redeem, enter the claim code and apply it to your balance.",
	},
	{
		ID: "7", Platform: "Amazon", Name: "Amazon Gift Card",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(500), PriceUSD: usd("6.00"),
		Instructions: "Visit www.amazon.in/redeem, enter the claim code and apply it to your balance.",
	},
	{
		ID: "13", Platform: "Amazon", Name: "Amazon Gift Card",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(1000), PriceUSD: usd("12.00"),
		Instructions: "Visit www.amazon.in/redeem, enter the claim code and apply it to your balance.",
	},

	// Steam
	{
		ID: "2", Platform: "Steam", Name: "Steam Wallet Code",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(250), PriceUSD: usd("3.00"),
		Instructions: "Go to store.steampowered.com/account/redeemwalletcode, sign in and enter your wallet code.",
	},
	{
		ID: "5", Platform: "Steam", Name: "Steam Wallet Code",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(500), PriceUSD: usd("6.00"),
		Instructions: "Go to store.steampowered.com/account/redeemwalletcode, sign in and enter your wallet code.",
	},
	{
		ID: "8", Platform: "Steam", Name: "Steam Wallet Code",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(1000), PriceUSD: usd("12.00"),
		Instructions: "Go to store.steampowered.com/account/redeemwalletcode, sign in and enter your wallet code.",
	},
	{
		ID: "14", Platform: "Steam", Name: "Steam Wallet Code",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(1500), PriceUSD: usd("18.00"),
		Instructions: "Go to store.steampowered.com/account/redeemwalletcode, sign in and enter your wallet code.",
	},

	// Google Play
	{
		ID: "3", Platform: "Google Play", Name: "Google Play Gift Code",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(100), PriceUSD: usd("1.50"),
		Instructions: "Open the Google Play Store app, tap Menu > Redeem and enter your code.",
	},
	{
		ID: "6", Platform: "Google Play", Name: "Google Play Gift Code",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(300), PriceUSD: usd("3.50"),
		Instructions: "Open the Google Play Store app, tap Menu > Redeem and enter your code.",
	},
	{
		ID: "15", Platform: "Google Play", Name: "Google Play Gift Code",
		Category: domain.CategoryGiftCard,
		PriceINR: inr(500), PriceUSD: usd("6.00"),
		Instructions: "Open the Google Play Store app, tap Menu > Redeem and enter your code.",
	},

	// Netflix
	{
		ID: "18", Platform: "Netflix", Name: "Netflix Mobile Membership",
		Category: domain.CategoryMembership, PlanType: domain.PlanMonthly,
		PriceINR: inr(149), PriceUSD: usd("1.99"),
		Features:     []string{"480p resolution", "Watch on 1 phone or tablet"},
		Instructions: "Go to netflix.com/redeem and enter the PIN code.",
	},
	{
		ID: "9", Platform: "Netflix", Name: "Netflix Basic Membership",
		Category: domain.CategoryMembership, PlanType: domain.PlanMonthly,
		PriceINR: inr(199), PriceUSD: usd("2.49"),
		Features:     []string{"720p resolution", "Watch on 1 device at a time"},
		Instructions: "Go to netflix.com/redeem and enter the PIN code.",
	},
	{
		ID: "11", Platform: "Netflix", Name: "Netflix Standard Membership",
		Category: domain.CategoryMembership, PlanType: domain.PlanMonthly,
		PriceINR: inr(499), PriceUSD: usd("5.99"), Popular: true,
		Features:     []string{"1080p resolution", "Watch on 2 devices at a time"},
		Instructions: "Go to netflix.com/redeem and enter the PIN code.",
	},
	{
		ID: "16", Platform: "Netflix", Name: "Netflix Premium Membership",
		Category: domain.CategoryMembership, PlanType: domain.PlanMonthly,
		PriceINR: inr(649), PriceUSD: usd("7.99"),
		Features:     []string{"4K+HDR resolution", "Watch on 4 devices at a time"},
		Instructions: "Go to netflix.com/redeem and enter the PIN code.",
	},

	// Spotify
	{
		ID: "10", Platform: "Spotify", Name: "Spotify Individual",
		Category: domain.CategoryMembership, PlanType: domain.PlanMonthly,
		PriceINR: inr(129), PriceUSD: usd("1.59"), Popular: true,
		Features:     []string{"1 Premium account", "Ad-free music listening"},
		Instructions: "Go to spotify.com/redeem, log in and enter the PIN on the back of the card.",
	},
	{
		ID: "12", Platform: "Spotify", Name: "Spotify Duo",
		Category: domain.CategoryMembership, PlanType: domain.PlanMonthly,
		PriceINR: inr(149), PriceUSD: usd("1.99"),
		Features:     []string{"2 Premium accounts", "For couples under one roof"},
		Instructions: "Go to spotify.com/redeem, log in and enter the PIN on the back of the card.",
	},
	{
		ID: "17", Platform: "Spotify", Name: "Spotify Family",
		Category: domain.CategoryMembership, PlanType: domain.PlanMonthly,
		PriceINR: inr(179), PriceUSD: usd("2.49"),
		Features:     []string{"Up to 6 Premium accounts", "For family members under one roof"},
		Instructions: "Go to spotify.com/redeem, log in and enter the PIN on the back of the card.",
	},
}
