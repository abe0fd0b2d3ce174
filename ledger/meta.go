package ledger

import (
	"github.com/pkg/errors"
)

// TxMeta is the validated-transaction metadata the ledger records alongside a
// transaction. AffectedNodes is the authoritative source for artifacts such as
// minted token ids; transaction fields alone never carry them.
type TxMeta struct {
	AffectedNodes     []AffectedNode `json:"AffectedNodes"`
	TransactionResult string         `json:"TransactionResult"`
}

// AffectedNode is a tagged union; exactly one of the three variants is set.
type AffectedNode struct {
	CreatedNode  *NodeData `json:"CreatedNode,omitempty"`
	ModifiedNode *NodeData `json:"ModifiedNode,omitempty"`
	DeletedNode  *NodeData `json:"DeletedNode,omitempty"`
}

// NodeData carries the ledger entry state around one mutation. NewFields is
// populated on creation, FinalFields/PreviousFields on modification.
type NodeData struct {
	LedgerEntryType string      `json:"LedgerEntryType"`
	LedgerIndex     string      `json:"LedgerIndex"`
	NewFields       *NodeFields `json:"NewFields,omitempty"`
	FinalFields     *NodeFields `json:"FinalFields,omitempty"`
	PreviousFields  *NodeFields `json:"PreviousFields,omitempty"`
}

// NodeFields is the subset of entry fields artifact extraction needs.
type NodeFields struct {
	NFTokens []NFTokenEntry `json:"NFTokens,omitempty"`
	Owner    string         `json:"Owner,omitempty"`
	Amount   interface{}    `json:"Amount,omitempty"`
}

type NFTokenEntry struct {
	NFToken NFToken `json:"NFToken"`
}

type NFToken struct {
	NFTokenID string `json:"NFTokenID"`
	URI       string `json:"URI,omitempty"`
}

const (
	entryNFTokenPage  = "NFTokenPage"
	entryNFTokenOffer = "NFTokenOffer"
)

// ErrArtifactNotFound means validated metadata was scanned in full without
// yielding the expected artifact.
var ErrArtifactNotFound = errors.New("expected artifact missing from transaction metadata")

// ExtractMintedTokenID diffs the NFTokenPage entries in validated mint
// metadata and returns the token id present after the transaction but not
// before it. Page splits mean the new token can land on a created page rather
// than the modified one, so every page node contributes to the diff.
func ExtractMintedTokenID(meta *TxMeta) (string, error) {
	if meta == nil {
		return "", ErrArtifactNotFound
	}

	before := make(map[string]struct{})
	after := make(map[string]struct{})

	collect := func(set map[string]struct{}, fields *NodeFields) {
		if fields == nil {
			return
		}
		for _, entry := range fields.NFTokens {
			if entry.NFToken.NFTokenID != "" {
				set[entry.NFToken.NFTokenID] = struct{}{}
			}
		}
	}

	for _, node := range meta.AffectedNodes {
		switch {
		case node.CreatedNode != nil && node.CreatedNode.LedgerEntryType == entryNFTokenPage:
			collect(after, node.CreatedNode.NewFields)
		case node.ModifiedNode != nil && node.ModifiedNode.LedgerEntryType == entryNFTokenPage:
			collect(after, node.ModifiedNode.FinalFields)
			collect(before, node.ModifiedNode.PreviousFields)
		case node.DeletedNode != nil && node.DeletedNode.LedgerEntryType == entryNFTokenPage:
			collect(before, node.DeletedNode.FinalFields)
		}
	}

	for id := range after {
		if _, existed := before[id]; !existed {
			return id, nil
		}
	}
	return "", errors.Wrap(ErrArtifactNotFound, "no new token id in page diff")
}

// ExtractCreatedOfferID returns the ledger index of the NFTokenOffer entry
// created by a validated offer transaction.
func ExtractCreatedOfferID(meta *TxMeta) (string, error) {
	if meta == nil {
		return "", ErrArtifactNotFound
	}
	for _, node := range meta.AffectedNodes {
		if node.CreatedNode != nil && node.CreatedNode.LedgerEntryType == entryNFTokenOffer {
			if node.CreatedNode.LedgerIndex == "" {
				break
			}
			return node.CreatedNode.LedgerIndex, nil
		}
	}
	return "", errors.Wrap(ErrArtifactNotFound, "no created offer entry in metadata")
}
