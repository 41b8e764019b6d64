package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/shopspring/decimal"
)

var (
	User1 = &entity.User{
		Base:   entity.Base{ID: "user1"},
		Wallet: "8rL1RKq8gCEezrhDPkcMHjJZeWNWUgopDFnVZJuQaugx",
	}

	User2 = &entity.User{
		Base:   entity.Base{ID: "user2"},
		Wallet: "5vb9ZUvYTVzuogK1a7FRv1GDdE2JLZbf8cxhqkh1u31K",
	}

	User3 = &entity.User{
		Base:   entity.Base{ID: "user3"},
		Wallet: "2PnkuZhdu6HPzEjDoeaXXwTgZpBaPBZ33EkQtYsXPsYm",
	}

	AdminUser = &entity.User{
		Base:    entity.Base{ID: "admin"},
		Wallet:  "J92ZX9PFBCBEJoWA6UHbmTSki4JcGPKH16nHYh9dtDjD",
		IsAdmin: true,
	}

	Users = []*entity.User{User1, User2, User3, AdminUser}

	// Lottery1 is open for purchases.
	Lottery1 = &entity.Lottery{
		Base:           entity.Base{ID: "lottery1"},
		OnchainID:      1,
		Type:           entity.LotteryTriDaily,
		TicketPrice:    decimal.NewFromInt(100000000),
		MaxTickets:     100,
		CurrentTickets: 0,
		PrizePool:      decimal.Zero,
		DrawTimestamp:  time.Now().Add(time.Hour),
	}

	// Lottery2 passed its draw deadline with three tickets sold.
	Lottery2 = &entity.Lottery{
		Base:           entity.Base{ID: "lottery2"},
		OnchainID:      2,
		Type:           entity.LotteryJackpot,
		TicketPrice:    decimal.NewFromInt(200000000),
		MaxTickets:     5000,
		CurrentTickets: 3,
		PrizePool:      decimal.NewFromInt(600000000),
		DrawTimestamp:  time.Now().Add(-time.Minute),
	}

	// Lottery3 passed its draw deadline without any ticket.
	Lottery3 = &entity.Lottery{
		Base:           entity.Base{ID: "lottery3"},
		OnchainID:      3,
		Type:           entity.LotteryGrandPrize,
		TicketPrice:    decimal.NewFromInt(330000000),
		MaxTickets:     10000,
		CurrentTickets: 0,
		PrizePool:      decimal.Zero,
		DrawTimestamp:  time.Now().Add(-time.Minute),
	}

	Lotteries = []*entity.Lottery{Lottery1, Lottery2, Lottery3}

	Lottery2Tickets = []entity.Ticket{
		newTicket("lottery2_ticket1", User1.ID, Lottery2, 1),
		newTicket("lottery2_ticket2", User2.ID, Lottery2, 2),
		newTicket("lottery2_ticket3", User1.ID, Lottery2, 3),
	}

	Affiliate1 = &entity.Affiliate{
		Base:            entity.Base{ID: "affiliate1"},
		UserID:          User1.ID,
		ReferralCode:    "USER1",
		PendingEarnings: decimal.Zero,
		TotalEarned:     decimal.Zero,
	}

	// Referral1 records that User1 referred User2.
	Referral1 = &entity.Referral{
		Base:                  entity.Base{ID: "referral1"},
		ReferrerAffiliateID:   Affiliate1.ID,
		ReferredUserID:        User2.ID,
		TotalValue:            decimal.Zero,
		TotalCommissionEarned: decimal.Zero,
	}
)

func newTicket(id, userID string, lottery *entity.Lottery, number uint32) entity.Ticket {
	return entity.Ticket{
		Base:          entity.Base{ID: id},
		UserID:        userID,
		LotteryID:     lottery.ID,
		TicketNumber:  number,
		PurchaseID:    id,
		PurchasePrice: lottery.TicketPrice,
		TxSignature:   entity.PendingTxSignature(id),
	}
}

func CreateFixture(ctx context.Context) {
	userRepo := repository.NewUserRepository()
	for _, u := range Users {
		if err := userRepo.Create(ctx, copyOf(u)); err != nil {
			panic(err)
		}
	}

	lotteryRepo := repository.NewLotteryRepository()
	for _, l := range Lotteries {
		if err := lotteryRepo.Create(ctx, copyOf(l)); err != nil {
			panic(err)
		}
	}

	ticketRepo := repository.NewTicketRepository()
	tickets := make([]entity.Ticket, len(Lottery2Tickets))
	copy(tickets, Lottery2Tickets)
	if err := ticketRepo.CreateMany(ctx, tickets); err != nil {
		panic(err)
	}

	affiliateRepo := repository.NewAffiliateRepository()
	if err := affiliateRepo.Create(ctx, copyOf(Affiliate1)); err != nil {
		panic(err)
	}

	if err := affiliateRepo.CreateReferral(ctx, copyOf(Referral1)); err != nil {
		panic(err)
	}
}

// CreateDrawnLottery inserts a drawn lottery whose winning ticket belongs to
// userID, and returns the lottery and the winning ticket.
func CreateDrawnLottery(
	ctx context.Context, id string, onchainID uint64, userID string, prize decimal.Decimal,
) (*entity.Lottery, *entity.Ticket) {
	lottery := &entity.Lottery{
		Base:           entity.Base{ID: id},
		OnchainID:      onchainID,
		Type:           entity.LotteryXmas,
		TicketPrice:    decimal.NewFromInt(200000000),
		MaxTickets:     7500,
		CurrentTickets: 1,
		PrizePool:      prize,
		DrawTimestamp:  time.Now().Add(-time.Hour),
		IsDrawn:        true,
		WinningTicket:  sql.NullInt32{Int32: 1, Valid: true},
	}
	if err := repository.NewLotteryRepository().Create(ctx, lottery); err != nil {
		panic(err)
	}

	ticket := newTicket(id+"_ticket1", userID, lottery, 1)
	ticket.TxSignature = id + "_payment"
	ticket.IsWinner = true
	if err := repository.NewTicketRepository().CreateMany(ctx, []entity.Ticket{ticket}); err != nil {
		panic(err)
	}

	draw := &entity.Draw{
		Base:           entity.Base{ID: id + "_draw"},
		LotteryID:      lottery.ID,
		RequestID:      "vrf_fixture",
		Randomness:     "0x00",
		TicketCount:    1,
		WinningTicket:  1,
		WinnerTicketID: ticket.ID,
		WinnerUserID:   userID,
		PrizeAmount:    prize,
		DrawnAt:        time.Now(),
	}
	if err := repository.NewDrawRepository().Create(ctx, draw); err != nil {
		panic(err)
	}

	return lottery, &ticket
}

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}
