package testutil

import (
	"context"
	"fmt"
	"testing"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	"github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/domain/user"
	"github.com/yungbote/kpi-visual-backend/internal/normalization"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RowSeed describes one row fact; it is stored in whichever family table Family names.
type RowSeed struct {
	Family  facts.Family
	Month   string // YYYY-MM
	Segment string
	Odm     string
	Model   string
	Plant   string
	Claim   int64
	MM      int64
}

func Month(tb testing.TB, ym string) datatypes.Date {
	tb.Helper()
	m, ok := normalization.ParseMonth(ym)
	if !ok {
		tb.Fatalf("bad month %q", ym)
	}
	return datatypes.Date(m)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func SeedRows(tb testing.TB, ctx context.Context, tx *gorm.DB, seeds ...RowSeed) {
	tb.Helper()
	for i, s := range seeds {
		hash := normalization.ContentHash(string(s.Family), s.Month, s.Segment, s.Odm, s.Model, s.Plant, fmt.Sprint(sqliteSeq.Add(1)))
		var err error
		if s.Family == facts.FamilyRA {
			err = tx.WithContext(ctx).Create(&types.RaRowFact{
				ContentHash: hash,
				ClaimMonth:  Month(tb, s.Month),
				Segment:     optional(s.Segment),
				SupplierNew: optional(s.Odm),
				Model:       optional(s.Model),
				Plant:       optional(s.Plant),
				RaClaim:     s.Claim,
				RaMM:        s.MM,
			}).Error
		} else {
			err = tx.WithContext(ctx).Create(&types.IfirRowFact{
				ContentHash:   hash,
				DeliveryMonth: Month(tb, s.Month),
				Segment:       optional(s.Segment),
				SupplierNew:   optional(s.Odm),
				Model:         optional(s.Model),
				Plant:         optional(s.Plant),
				BoxClaim:      s.Claim,
				BoxMM:         s.MM,
			}).Error
		}
		if err != nil {
			tb.Fatalf("seed row %d: %v", i, err)
		}
	}
}

// DetailSeed describes one claim; Month is the family's detail time axis.
type DetailSeed struct {
	Family   facts.Family
	ClaimNbr string
	Month    string
	Model    string
	Segment  string
	Plant    string
	Fault    string
	Descr    string
}

func SeedDetails(tb testing.TB, ctx context.Context, tx *gorm.DB, seeds ...DetailSeed) {
	tb.Helper()
	for _, s := range seeds {
		m := Month(tb, s.Month)
		common := types.DetailCommon{
			Model:              optional(s.Model),
			Segment:            optional(s.Segment),
			Plant:              optional(s.Plant),
			FaultCategory:      optional(s.Fault),
			ProblemDescrByTech: optional(s.Descr),
		}
		var err error
		if s.Family == facts.FamilyRA {
			err = tx.WithContext(ctx).Create(&types.RaDetailFact{
				ClaimNbr:     s.ClaimNbr,
				ClaimMonth:   &m,
				DetailCommon: common,
			}).Error
		} else {
			err = tx.WithContext(ctx).Create(&types.IfirDetailFact{
				ClaimNbr:      s.ClaimNbr,
				ClaimMonth:    &m,
				DeliveryMonth: &m,
				DetailCommon:  common,
			}).Error
		}
		if err != nil {
			tb.Fatalf("seed detail %s: %v", s.ClaimNbr, err)
		}
	}
}

func SeedMapping(tb testing.TB, ctx context.Context, tx *gorm.DB, family facts.Family, odm string, plants ...string) {
	tb.Helper()
	for _, p := range plants {
		if err := tx.WithContext(ctx).Create(&types.OdmPlantMapping{
			KpiType:     string(family),
			SupplierNew: odm,
			Plant:       p,
		}).Error; err != nil {
			tb.Fatalf("seed mapping %s/%s: %v", odm, p, err)
		}
	}
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username, role, hashedPassword string) *types.User {
	tb.Helper()
	u := &types.User{
		Username:       username,
		DisplayName:    username,
		HashedPassword: hashedPassword,
		Role:           role,
		IsActive:       true,
	}
	if role == "" {
		u.Role = user.RoleViewer
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}
