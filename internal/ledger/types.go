package ledger

// Commitment levels accepted by RPC and subscription requests.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// Transaction represents a Solana transaction with status metadata.
type Transaction struct {
	Slot        int64
	Signature   string
	BlockTime   int64 // Unix timestamp (seconds)
	Meta        *TransactionMeta
	AccountKeys []string
}

// InnerInstructionData flattens the data of every inner instruction, in order.
func (t *Transaction) InnerInstructionData() []string {
	if t == nil || t.Meta == nil {
		return nil
	}
	var data []string
	for _, group := range t.Meta.InnerInstructions {
		for _, ix := range group.Instructions {
			data = append(data, ix.Data)
		}
	}
	return data
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	InnerInstructions []InnerInstructions
}

// InnerInstructions groups the CPI instructions emitted by one top-level instruction.
type InnerInstructions struct {
	Index        int                   `json:"index"`
	Instructions []CompiledInstruction `json:"instructions"`
}

// CompiledInstruction is an instruction in wire form.
// Data is base58 under "json" encoding.
type CompiledInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
	StackHeight    *int   `json:"stackHeight,omitempty"`
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// Blockhash is a recent blockhash with its expiry height.
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
}

// SignatureStatus is an entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64       `json:"slot"`
	Confirmations      *int64      `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// Confirmed reports whether the status reached at least the confirmed level.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil {
		return false
	}
	return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
}
