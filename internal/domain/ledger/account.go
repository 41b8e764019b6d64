package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

type LotteryKind uint8

const (
	LotteryKindTriDaily LotteryKind = iota
	LotteryKindJackpot
	LotteryKindGrandPrize
	LotteryKindXmas
)

// LotteryAccount mirrors the on-chain Lottery account of the lottery program.
type LotteryAccount struct {
	Authority      solana.PublicKey
	LotteryID      uint64
	Kind           LotteryKind
	Round          uint64
	Month          uint16
	Year           uint32
	TicketPrice    uint64
	MaxTickets     uint32
	CurrentTickets uint32
	DrawTimestamp  int64
	IsDrawn        bool
	WinningTickets []uint32
	Treasury       solana.PublicKey
	AffiliatesPool solana.PublicKey
	PrizePool      uint64
	Bump           uint8
}

// WinningTicket returns the first winning ticket, if the lottery is drawn.
func (a *LotteryAccount) WinningTicket() (uint32, bool) {
	if !a.IsDrawn || len(a.WinningTickets) == 0 {
		return 0, false
	}

	return a.WinningTickets[0], true
}

var lotteryDiscriminator = accountDiscriminator("Lottery")

var ErrInvalidAccount = errors.New("invalid lottery account")

func accountDiscriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:8])
	return d
}

// LotteryAddress derives the program address holding the lottery account.
func LotteryAddress(programID solana.PublicKey, onchainID uint64) (solana.PublicKey, error) {
	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, onchainID)

	address, _, err := solana.FindProgramAddress([][]byte{[]byte("lottery"), id}, programID)
	return address, err
}

func DecodeLotteryAccount(data []byte) (*LotteryAccount, error) {
	if len(data) < 8 {
		return nil, ErrInvalidAccount
	}

	var discriminator [8]byte
	copy(discriminator[:], data[:8])
	if discriminator != lotteryDiscriminator {
		return nil, fmt.Errorf("%w: unexpected discriminator %x", ErrInvalidAccount, discriminator)
	}

	dec := bin.NewBorshDecoder(data[8:])
	account := &LotteryAccount{}

	var err error
	read := func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}

	read(func() error { return readPublicKey(dec, &account.Authority) })
	read(func() (e error) { account.LotteryID, e = dec.ReadUint64(binary.LittleEndian); return })
	read(func() error { return readLotteryKind(dec, account) })
	read(func() (e error) { account.TicketPrice, e = dec.ReadUint64(binary.LittleEndian); return })
	read(func() (e error) { account.MaxTickets, e = dec.ReadUint32(binary.LittleEndian); return })
	read(func() (e error) { account.CurrentTickets, e = dec.ReadUint32(binary.LittleEndian); return })
	read(func() (e error) { account.DrawTimestamp, e = dec.ReadInt64(binary.LittleEndian); return })
	read(func() (e error) { account.IsDrawn, e = dec.ReadBool(); return })
	read(func() error { return readWinningTickets(dec, account) })
	read(func() error { return readPublicKey(dec, &account.Treasury) })
	read(func() error { return readPublicKey(dec, &account.AffiliatesPool) })
	read(func() (e error) { account.PrizePool, e = dec.ReadUint64(binary.LittleEndian); return })
	read(func() (e error) { account.Bump, e = dec.ReadUint8(); return })

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}

	return account, nil
}

func readPublicKey(dec *bin.Decoder, out *solana.PublicKey) error {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}

	*out = solana.PublicKeyFromBytes(b)
	return nil
}

func readLotteryKind(dec *bin.Decoder, account *LotteryAccount) error {
	tag, err := dec.ReadUint8()
	if err != nil {
		return err
	}

	account.Kind = LotteryKind(tag)
	switch account.Kind {
	case LotteryKindTriDaily:
		account.Round, err = dec.ReadUint64(binary.LittleEndian)
	case LotteryKindJackpot:
		if account.Month, err = dec.ReadUint16(binary.LittleEndian); err == nil {
			account.Year, err = dec.ReadUint32(binary.LittleEndian)
		}
	case LotteryKindGrandPrize, LotteryKindXmas:
		account.Year, err = dec.ReadUint32(binary.LittleEndian)
	default:
		err = fmt.Errorf("unknown lottery kind %d", tag)
	}

	return err
}

func readWinningTickets(dec *bin.Decoder, account *LotteryAccount) error {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}

	if n > 1024 {
		return fmt.Errorf("too many winning tickets: %d", n)
	}

	account.WinningTickets = make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		t, err := dec.ReadUint32(binary.LittleEndian)
		if err != nil {
			return err
		}

		account.WinningTickets = append(account.WinningTickets, t)
	}

	return nil
}
