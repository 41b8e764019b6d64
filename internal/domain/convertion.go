package domain

import (
	"database/sql"
	"time"

	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/model"
)

const defaultTimeLayout string = time.RFC3339Nano

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}

	return t.Time.Format(defaultTimeLayout)
}

func convertLottery(lottery *entity.Lottery) model.Lottery {
	if lottery == nil {
		return model.Lottery{}
	}

	return model.Lottery{
		ID:             lottery.ID,
		OnchainID:      lottery.OnchainID,
		Type:           string(lottery.Type),
		TicketPrice:    lottery.TicketPrice.String(),
		MaxTickets:     lottery.MaxTickets,
		CurrentTickets: lottery.CurrentTickets,
		PrizePool:      lottery.PrizePool.String(),
		DrawTimestamp:  lottery.DrawTimestamp.Format(defaultTimeLayout),
		IsDrawn:        lottery.IsDrawn,
		WinningTicket:  uint32(lottery.WinningTicket.Int32),
		DrawTxSig:      lottery.DrawTxSignature.String,
	}
}

func convertTicket(ticket *entity.Ticket) model.Ticket {
	if ticket == nil {
		return model.Ticket{}
	}

	return model.Ticket{
		ID:            ticket.ID,
		LotteryID:     ticket.LotteryID,
		TicketNumber:  ticket.TicketNumber,
		PurchaseID:    ticket.PurchaseID,
		PurchasePrice: ticket.PurchasePrice.String(),
		TxSignature:   ticket.TxSignature,
		IsWinner:      ticket.IsWinner,
		CreatedAt:     ticket.CreatedAt.Format(defaultTimeLayout),
	}
}

func convertDraw(draw *entity.Draw) model.Draw {
	if draw == nil {
		return model.Draw{}
	}

	return model.Draw{
		ID:            draw.ID,
		LotteryID:     draw.LotteryID,
		RequestID:     draw.RequestID,
		Randomness:    draw.Randomness,
		ProofDigest:   draw.ProofDigest,
		Proof:         draw.Proof,
		TicketCount:   draw.TicketCount,
		WinningTicket: draw.WinningTicket,
		WinnerUserID:  draw.WinnerUserID,
		PrizeAmount:   draw.PrizeAmount.String(),
		DrawnAt:       draw.DrawnAt.Format(defaultTimeLayout),
		TxSignature:   draw.TxSignature.String,
	}
}

func convertClaim(claim *entity.Claim) model.Claim {
	if claim == nil {
		return model.Claim{}
	}

	return model.Claim{
		ID:          claim.ID,
		Type:        string(claim.Type),
		TicketID:    claim.TicketID.String,
		LotteryID:   claim.LotteryID.String,
		Amount:      claim.Amount.String(),
		Status:      string(claim.Status()),
		State:       string(claim.State),
		TxSignature: claim.TxSignature.String,
		CreatedAt:   claim.CreatedAt.Format(defaultTimeLayout),
		ClaimedAt:   formatNullTime(claim.ClaimedAt),
		ConfirmedAt: formatNullTime(claim.ConfirmedAt),
	}
}

func convertTierAuditEntry(entry *entity.TierAuditEntry) model.TierAuditEntry {
	if entry == nil {
		return model.TierAuditEntry{}
	}

	return model.TierAuditEntry{
		ID:          entry.ID,
		AffiliateID: entry.AffiliateID,
		AdminID:     entry.AdminID,
		Action:      string(entry.Action),
		OldTier:     entry.OldTier,
		NewTier:     int(entry.NewTier.Int32),
		Reason:      entry.Reason,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		CreatedAt:   entry.CreatedAt.Format(defaultTimeLayout),
	}
}

func convertAffiliateApplication(application *entity.AffiliateApplication) model.AffiliateApplication {
	return model.AffiliateApplication{
		ID:                  application.ID,
		UserID:              application.UserID,
		Wallet:              application.Wallet,
		FullName:            application.FullName,
		Email:               application.Email,
		Country:             application.Country,
		SocialMedia:         application.SocialMedia,
		MarketingExperience: application.MarketingExperience,
		MarketingStrategy:   application.MarketingStrategy,
		Status:              string(application.Status),
		AdminNotes:          application.AdminNotes,
		ReviewedAt:          formatNullTime(application.ReviewedAt),
		CreatedAt:           application.CreatedAt.Format(defaultTimeLayout),
	}
}
