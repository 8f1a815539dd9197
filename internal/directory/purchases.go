package directory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

const (
	ItemPremium30d = "premium_30d"
	packItemPrefix = "pack_"

	premium30dSeconds = 30 * 24 * 60 * 60

	PremiumPrice = 149
	PackPrice    = 99
)

// PackItem is the item code selling a content pack.
func PackItem(pack string) string {
	return packItemPrefix + pack
}

// Price returns the price of an item code, or ErrUnknownItem.
func Price(item string) (int, error) {
	switch {
	case item == ItemPremium30d:
		return PremiumPrice, nil
	case strings.HasPrefix(item, packItemPrefix) && len(item) > len(packItemPrefix):
		return PackPrice, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownItem, item)
}

// Catalog lists purchasable items: premium plus one entry per stored pack.
func Catalog() ([]string, error) {
	items := []string{ItemPremium30d}
	names, err := localdb.ListContentPackNames()
	if err != nil {
		return items, err
	}
	sort.Strings(names)
	for _, n := range names {
		items = append(items, PackItem(n))
	}
	return items, nil
}

// RecordPurchase appends to the purchase log without applying the effect.
func (d *Directory) RecordPurchase(userID int64, item string, price int) (int64, error) {
	return localdb.InsertPurchase(userID, item, price)
}

// Purchase records item for userID and applies its effect.
func (d *Directory) Purchase(userID int64, item string) (int64, error) {
	price, err := Price(item)
	if err != nil {
		return 0, err
	}
	if pack, ok := strings.CutPrefix(item, packItemPrefix); ok {
		if _, err := localdb.GetContentPack(pack); err != nil {
			return 0, err
		}
		// 同じ購入が二重に残ると返金で所持が消える
		owned, err := d.OwnsPack(userID, pack)
		if err != nil {
			return 0, err
		}
		if owned {
			return 0, ErrAlreadyOwned
		}
	}
	id, err := d.RecordPurchase(userID, item, price)
	if err != nil {
		return 0, err
	}
	if err := d.applyItem(userID, item, false); err != nil {
		return id, err
	}
	logger.Info("Purchase applied", zap.Int64("purchase_id", id), zap.Int64("user_id", userID), zap.String("item", item))
	return id, nil
}

// Refund reverses the inventory effect of a purchase and marks it refunded.
func (d *Directory) Refund(purchaseID int64) (*localdb.Purchase, error) {
	p, err := localdb.GetPurchase(purchaseID)
	if err != nil {
		return nil, err
	}
	if p.Refunded {
		return p, ErrAlreadyRefunded
	}
	ok, err := localdb.MarkPurchaseRefunded(purchaseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return p, ErrAlreadyRefunded
	}
	if err := d.applyItem(p.UserID, p.ItemCode, true); err != nil {
		return p, err
	}
	p.Refunded = true
	logger.Info("Purchase refunded", zap.Int64("purchase_id", purchaseID), zap.Int64("user_id", p.UserID), zap.String("item", p.ItemCode))
	return p, nil
}

func (d *Directory) applyItem(userID int64, item string, reverse bool) error {
	switch {
	case item == ItemPremium30d:
		secs := int64(premium30dSeconds)
		if reverse {
			secs = -secs
		}
		return d.AddPremium(userID, secs)
	case strings.HasPrefix(item, packItemPrefix):
		pack := strings.TrimPrefix(item, packItemPrefix)
		if reverse {
			return d.RemovePack(userID, pack)
		}
		return d.AddPack(userID, pack)
	}
	return fmt.Errorf("%w: %s", ErrUnknownItem, item)
}
