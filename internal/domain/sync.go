package domain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/powersol-lab/backend/internal/common"
	"github.com/powersol-lab/backend/internal/domain/ledger"
	"github.com/powersol-lab/backend/internal/entity"
	"github.com/powersol-lab/backend/internal/repository"
	"github.com/powersol-lab/backend/pkg/errorx"
	"github.com/powersol-lab/backend/pkg/pubsub"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
)

const syncBatchSize = 100

type SyncDomain interface {
	// Sync reconciles the store against the ledger. Prize pools follow the
	// ledger. Ticket counts and drawn flags never do, a difference there is
	// reported for a manual check.
	Sync(ctx context.Context) error
}

type syncDomain struct {
	lotteryRepo  repository.LotteryRepository
	ledgerTxRepo repository.LedgerTransactionRepository
	ticketDomain TicketDomain
	claimDomain  ClaimDomain
	gateway      ledger.Gateway
	publisher    pubsub.Publisher
}

func NewSyncDomain(
	lotteryRepo repository.LotteryRepository,
	ledgerTxRepo repository.LedgerTransactionRepository,
	ticketDomain TicketDomain,
	claimDomain ClaimDomain,
	gateway ledger.Gateway,
	publisher pubsub.Publisher,
) *syncDomain {
	return &syncDomain{
		lotteryRepo:  lotteryRepo,
		ledgerTxRepo: ledgerTxRepo,
		ticketDomain: ticketDomain,
		claimDomain:  claimDomain,
		gateway:      gateway,
		publisher:    publisher,
	}
}

type syncFailedEvent struct {
	Error string `json:"error"`
	At    string `json:"at"`
}

func (d *syncDomain) Sync(ctx context.Context) error {
	var errs []error
	if err := d.syncLotteries(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := d.verifyLedgerTransactions(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := d.claimDomain.Reconcile(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cannot reconcile claims: %w", err))
	}

	if len(errs) == 0 {
		return nil
	}

	err := errors.Join(errs...)
	if xcontext.Configs(ctx).Solana.AlertOnSyncFailure {
		publishEvent(ctx, d.publisher, common.TopicLedgerSyncFailed, "ledger_sync", syncFailedEvent{
			Error: err.Error(),
			At:    time.Now().Format(defaultTimeLayout),
		})
	}

	return err
}

func (d *syncDomain) syncLotteries(ctx context.Context) error {
	lotteries, err := d.lotteryRepo.GetOpen(ctx)
	if err != nil {
		return fmt.Errorf("cannot get open lotteries: %w", err)
	}

	failed := 0
	for i := range lotteries {
		lottery := &lotteries[i]
		account, err := d.gateway.GetLotteryAccount(ctx, lottery.OnchainID)
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				xcontext.Logger(ctx).Debugf("Lottery %s is not on the ledger yet", lottery.ID)
				continue
			}

			xcontext.Logger(ctx).Warnf("Cannot get ledger account of lottery %s: %v", lottery.ID, err)
			failed++
			continue
		}

		if err := d.syncLottery(ctx, lottery, account); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot sync lottery %s: %v", lottery.ID, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("cannot sync %d of %d lotteries", failed, len(lotteries))
	}

	return nil
}

func (d *syncDomain) syncLottery(ctx context.Context, lottery *entity.Lottery, account *ledger.LotteryAccount) error {
	prizePool := decimal.NewFromBigInt(new(big.Int).SetUint64(account.PrizePool), 0)
	if !prizePool.Equal(lottery.PrizePool) {
		common.PromCounters[common.LedgerSyncDriftTotal].WithLabelValues("prize_pool").Inc()
		if err := d.lotteryRepo.UpdatePrizePool(ctx, lottery.ID, prizePool); err != nil {
			return err
		}

		xcontext.Logger(ctx).Infof("Prize pool of lottery %s synced from %s to %s",
			lottery.ID, lottery.PrizePool, prizePool)
	}

	if account.CurrentTickets != lottery.CurrentTickets {
		common.PromCounters[common.LedgerSyncDriftTotal].WithLabelValues("current_tickets").Inc()
		xcontext.Logger(ctx).Warnf("Lottery %s has %d tickets in store but %d on the ledger",
			lottery.ID, lottery.CurrentTickets, account.CurrentTickets)
	}

	if account.IsDrawn != lottery.IsDrawn {
		common.PromCounters[common.LedgerSyncDriftTotal].WithLabelValues("is_drawn").Inc()
		xcontext.Logger(ctx).Warnf("Lottery %s drawn flag is %t in store but %t on the ledger",
			lottery.ID, lottery.IsDrawn, account.IsDrawn)
	}

	return nil
}

// verifyLedgerTransactions closes purchase and memo transactions the ledger
// has decided on. Claim transactions are left to claim reconciliation.
func (d *syncDomain) verifyLedgerTransactions(ctx context.Context) error {
	txs, err := d.ledgerTxRepo.GetInProgress(ctx, syncBatchSize)
	if err != nil {
		return fmt.Errorf("cannot get in progress ledger transactions: %w", err)
	}

	for _, tx := range txs {
		switch tx.Kind {
		case entity.LedgerTransactionPrizeClaim,
			entity.LedgerTransactionAffiliateClaim,
			entity.LedgerTransactionMissionClaim:
			continue
		}

		status, err := d.gateway.SignatureStatus(ctx, tx.Signature)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot get status of transaction %s: %v", tx.Signature, err)
			continue
		}

		switch status {
		case ledger.TxStatusConfirmed:
			if tx.Kind == entity.LedgerTransactionTicketPurchase {
				err = d.ticketDomain.SettlePurchase(ctx, tx.ReferenceID, tx.Signature)
				if errorx.HasCode(err, errorx.Validation) {
					xcontext.Logger(ctx).Warnf("Rejected payment %s of purchase %s: %v", tx.Signature, tx.ReferenceID, err)
					continue
				}
			} else {
				err = d.ledgerTxRepo.UpdateStatus(ctx, tx.Signature, entity.LedgerTransactionSuccess)
			}

		case ledger.TxStatusFailed:
			err = d.ledgerTxRepo.UpdateStatus(ctx, tx.Signature, entity.LedgerTransactionFailure)

		default:
			continue
		}

		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot update %s transaction %s: %v", tx.Kind, tx.Signature, err)
		}
	}

	return nil
}
