package common

const (
	TopicTicketPurchased  = "ticket_purchased"
	TopicLotteryDrawn     = "lottery_drawn"
	TopicClaimSettled     = "claim_settled"
	TopicLedgerSyncFailed = "ledger_sync_failed"
)
