package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/memo"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/powersol-lab/backend/config"
	"github.com/powersol-lab/backend/pkg/retry"
	"github.com/powersol-lab/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
)

// RPC is the subset of *rpc.Client the gateway uses.
type RPC interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

var ErrAccountNotFound = errors.New("account not found")

type solanaGateway struct {
	clients   []RPC
	index     uint64
	programID solana.PublicKey
	treasury  solana.PrivateKey

	retryPolicy     retry.Policy
	confirmTimeout  time.Duration
	confirmInterval time.Duration
}

func NewSolanaGateway(cfg config.Configs, clients ...RPC) (*solanaGateway, error) {
	if len(clients) == 0 {
		for _, url := range cfg.Solana.RPCs {
			clients = append(clients, rpc.New(url))
		}
	}

	if len(clients) == 0 {
		return nil, errors.New("no solana rpc endpoint")
	}

	programID, err := solana.PublicKeyFromBase58(cfg.Solana.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}

	treasury, err := solana.PrivateKeyFromBase58(cfg.Solana.TreasuryPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid treasury key: %w", err)
	}

	return &solanaGateway{
		clients:   clients,
		programID: programID,
		treasury:  treasury,
		retryPolicy: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
		},
		confirmTimeout:  cfg.Solana.ConfirmTimeout,
		confirmInterval: cfg.Solana.ConfirmInterval,
	}, nil
}

func (g *solanaGateway) Treasury() string {
	return g.treasury.PublicKey().String()
}

// call runs fn against the endpoints in round-robin order, retrying the whole
// round with backoff. Errors wrapped with retry.Permanent stop immediately.
func (g *solanaGateway) call(ctx context.Context, operation string, fn func(RPC) error) error {
	return retry.DoNotify(ctx, g.retryPolicy,
		func() error {
			var err error
			for range g.clients {
				i := atomic.AddUint64(&g.index, 1) - 1
				if err = fn(g.clients[i%uint64(len(g.clients))]); err == nil {
					return nil
				}

				if retry.IsPermanent(err) {
					return err
				}
			}

			return err
		},
		func(err error, wait time.Duration) {
			xcontext.Logger(ctx).Warnf("Ledger operation %s failed, retry in %s: %v", operation, wait, err)
		},
	)
}

func (g *solanaGateway) GetLotteryAccount(ctx context.Context, onchainID uint64) (*LotteryAccount, error) {
	address, err := LotteryAddress(g.programID, onchainID)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = g.call(ctx, "get_account_info", func(c RPC) error {
		result, err := c.GetAccountInfo(ctx, address)
		if err != nil {
			if errors.Is(err, rpc.ErrNotFound) {
				return retry.Permanent(ErrAccountNotFound)
			}
			return err
		}

		if result == nil || result.Value == nil {
			return retry.Permanent(ErrAccountNotFound)
		}

		data = result.GetBinary()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return DecodeLotteryAccount(data)
}

func (g *solanaGateway) latestBlockhash(ctx context.Context) (*rpc.LatestBlockhashResult, error) {
	var result *rpc.LatestBlockhashResult
	err := g.call(ctx, "get_latest_blockhash", func(c RPC) error {
		resp, err := c.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}

		if resp == nil || resp.Value == nil {
			return errors.New("empty blockhash response")
		}

		result = resp.Value
		return nil
	})

	return result, err
}

func (g *solanaGateway) BuildTransfer(
	ctx context.Context, from, to string, amount decimal.Decimal,
) (*UnsignedTransfer, error) {
	if from != g.Treasury() {
		return nil, fmt.Errorf("cannot sign for %s", from)
	}

	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	lamports, err := toLamports(amount)
	if err != nil {
		return nil, err
	}

	blockhash, err := g.latestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, g.treasury.PublicKey(), recipient).Build(),
		},
		blockhash.Blockhash,
		solana.TransactionPayer(recipient),
	)
	if err != nil {
		return nil, err
	}

	if _, err := tx.PartialSign(g.signer); err != nil {
		return nil, err
	}

	encoded, err := tx.ToBase64()
	if err != nil {
		return nil, err
	}

	return &UnsignedTransfer{
		Transaction:          encoded,
		Blockhash:            blockhash.Blockhash.String(),
		LastValidBlockHeight: blockhash.LastValidBlockHeight,
	}, nil
}

func (g *solanaGateway) VerifyTransfer(signedTx, payer string, amount decimal.Decimal) (string, error) {
	return VerifyTransfer(signedTx, g.treasury.PublicKey(), payer, amount)
}

// VerifyTransfer checks that signedTx is a fully signed transaction paid by
// payer whose only instruction moves amount lamports from source to payer.
func VerifyTransfer(signedTx string, source solana.PublicKey, payer string, amount decimal.Decimal) (string, error) {
	tx, err := solana.TransactionFromBase64(signedTx)
	if err != nil {
		return "", fmt.Errorf("cannot decode transaction: %w", err)
	}

	payerKey, err := solana.PublicKeyFromBase58(payer)
	if err != nil {
		return "", fmt.Errorf("invalid payer: %w", err)
	}

	lamports, err := toLamports(amount)
	if err != nil {
		return "", err
	}

	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(payerKey) {
		return "", errors.New("transaction is not paid by the claimant")
	}

	if err := tx.VerifySignatures(); err != nil {
		return "", err
	}

	if len(tx.Message.Instructions) != 1 {
		return "", fmt.Errorf("expected one instruction, got %d", len(tx.Message.Instructions))
	}

	transfer, err := decodeTransfer(&tx.Message, tx.Message.Instructions[0])
	if err != nil {
		return "", err
	}

	if transfer == nil {
		return "", errors.New("instruction is not a system transfer")
	}

	if transfer.Lamports == nil || *transfer.Lamports != lamports {
		return "", errors.New("transfer amount mismatch")
	}

	if !transfer.GetFundingAccount().PublicKey.Equals(source) {
		return "", errors.New("transfer source mismatch")
	}

	if !transfer.GetRecipientAccount().PublicKey.Equals(payerKey) {
		return "", errors.New("transfer recipient mismatch")
	}

	return tx.Signatures[0].String(), nil
}

func (g *solanaGateway) GetTransfers(ctx context.Context, signature string) ([]Transfer, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, err
	}

	maxVersion := uint64(0)
	var tx *solana.Transaction
	err = g.call(ctx, "get_transaction", func(c RPC) error {
		result, err := c.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if err != nil {
			if errors.Is(err, rpc.ErrNotFound) {
				return retry.Permanent(ErrTransactionNotFound)
			}
			return err
		}

		if result == nil || result.Transaction == nil {
			return retry.Permanent(ErrTransactionNotFound)
		}

		if result.Meta != nil && result.Meta.Err != nil {
			return retry.Permanent(ErrTransactionFailed)
		}

		tx, err = result.Transaction.GetTransaction()
		if err != nil {
			return retry.Permanent(fmt.Errorf("cannot decode transaction: %w", err))
		}

		if tx == nil {
			return retry.Permanent(ErrTransactionNotFound)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return DecodeTransfers(tx)
}

// DecodeTransfers returns the system transfers of tx in instruction order.
// Instructions of other programs are skipped.
func DecodeTransfers(tx *solana.Transaction) ([]Transfer, error) {
	var transfers []Transfer
	for _, inst := range tx.Message.Instructions {
		transfer, err := decodeTransfer(&tx.Message, inst)
		if err != nil {
			return nil, err
		}

		if transfer == nil || transfer.Lamports == nil {
			continue
		}

		transfers = append(transfers, Transfer{
			From:   transfer.GetFundingAccount().PublicKey.String(),
			To:     transfer.GetRecipientAccount().PublicKey.String(),
			Amount: decimal.NewFromBigInt(new(big.Int).SetUint64(*transfer.Lamports), 0),
		})
	}

	return transfers, nil
}

// decodeTransfer returns nil when inst is not a system transfer.
func decodeTransfer(msg *solana.Message, inst solana.CompiledInstruction) (*system.Transfer, error) {
	programID, err := msg.Program(inst.ProgramIDIndex)
	if err != nil {
		return nil, err
	}

	if !programID.Equals(solana.SystemProgramID) {
		return nil, nil
	}

	accounts, err := inst.ResolveInstructionAccounts(msg)
	if err != nil {
		return nil, err
	}

	decoded, err := system.DecodeInstruction(accounts, inst.Data)
	if err != nil {
		return nil, err
	}

	transfer, _ := decoded.Impl.(*system.Transfer)
	return transfer, nil
}

func (g *solanaGateway) Broadcast(ctx context.Context, signedTx string) (string, error) {
	tx, err := solana.TransactionFromBase64(signedTx)
	if err != nil {
		return "", fmt.Errorf("cannot decode transaction: %w", err)
	}

	var signature solana.Signature
	err = g.call(ctx, "send_transaction", func(c RPC) error {
		sig, err := c.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			return err
		}

		signature = sig
		return nil
	})
	if err != nil {
		return "", err
	}

	return signature.String(), nil
}

func (g *solanaGateway) SignatureStatus(ctx context.Context, signature string) (TxStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return TxStatusUnknown, err
	}

	status := TxStatusUnknown
	err = g.call(ctx, "get_signature_statuses", func(c RPC) error {
		resp, err := c.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			if errors.Is(err, rpc.ErrNotFound) {
				return nil
			}
			return err
		}

		if len(resp.Value) == 0 || resp.Value[0] == nil {
			return nil
		}

		result := resp.Value[0]
		switch {
		case result.Err != nil:
			status = TxStatusFailed
		case result.ConfirmationStatus == rpc.ConfirmationStatusConfirmed,
			result.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
			status = TxStatusConfirmed
		default:
			status = TxStatusPending
		}

		return nil
	})

	return status, err
}

// Confirm polls the signature until it is confirmed, failed or the configured
// timeout passes. A transaction failed on-chain is reported as an error.
func (g *solanaGateway) Confirm(ctx context.Context, signature string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(g.confirmInterval)
	defer ticker.Stop()

	for {
		status, err := g.SignatureStatus(ctx, signature)
		if err != nil && ctx.Err() == nil {
			xcontext.Logger(ctx).Warnf("Cannot get status of %s: %v", signature, err)
		}

		switch status {
		case TxStatusConfirmed:
			return true, nil
		case TxStatusFailed:
			return false, fmt.Errorf("transaction %s failed on-chain", signature)
		}

		select {
		case <-ctx.Done():
			return false, nil
		case <-ticker.C:
		}
	}
}

func (g *solanaGateway) BlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := g.call(ctx, "get_block_height", func(c RPC) error {
		h, err := c.GetBlockHeight(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}

		height = h
		return nil
	})

	return height, err
}

func (g *solanaGateway) PublishMemo(ctx context.Context, data string) (string, error) {
	blockhash, err := g.latestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			memo.NewMemoInstructionBuilder().
				SetMessage([]byte(data)).
				SetSigner(g.treasury.PublicKey()).
				Build(),
		},
		blockhash.Blockhash,
		solana.TransactionPayer(g.treasury.PublicKey()),
	)
	if err != nil {
		return "", err
	}

	if _, err := tx.Sign(g.signer); err != nil {
		return "", err
	}

	encoded, err := tx.ToBase64()
	if err != nil {
		return "", err
	}

	return g.Broadcast(ctx, encoded)
}

func (g *solanaGateway) signer(key solana.PublicKey) *solana.PrivateKey {
	if key.Equals(g.treasury.PublicKey()) {
		return &g.treasury
	}

	return nil
}

func toLamports(amount decimal.Decimal) (uint64, error) {
	if amount.Sign() <= 0 || !amount.Equal(amount.Truncate(0)) {
		return 0, fmt.Errorf("invalid lamports amount %s", amount)
	}

	b := amount.BigInt()
	if !b.IsUint64() {
		return 0, fmt.Errorf("lamports amount %s overflows", amount)
	}

	return b.Uint64(), nil
}
