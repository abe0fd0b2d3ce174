package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	metaTokenExisting = "000800006203F49C21D5D6E022CB16DE3538F248662FC73C258BA5A000000001"
	metaTokenMinted   = "000800006203F49C21D5D6E022CB16DE3538F248662FC73C258BA5A000000002"
	metaOfferIndex    = "AEBABA4FAC212BF28E0F9A9C3788A47B085557EC5D1429E7A8266FB859C863B3"
)

func pageFields(ids ...string) *NodeFields {
	fields := &NodeFields{}
	for _, id := range ids {
		fields.NFTokens = append(fields.NFTokens, NFTokenEntry{NFToken: NFToken{NFTokenID: id}})
	}
	return fields
}

func TestExtractMintedTokenID_ModifiedPage(t *testing.T) {
	meta := &TxMeta{
		TransactionResult: "tesSUCCESS",
		AffectedNodes: []AffectedNode{
			{ModifiedNode: &NodeData{
				LedgerEntryType: entryNFTokenPage,
				PreviousFields:  pageFields(metaTokenExisting),
				FinalFields:     pageFields(metaTokenExisting, metaTokenMinted),
			}},
		},
	}

	id, err := ExtractMintedTokenID(meta)
	assert.NoError(t, err)
	assert.Equal(t, metaTokenMinted, id)
}

func TestExtractMintedTokenID_CreatedPage(t *testing.T) {
	// First mint for an account creates the page instead of modifying one.
	meta := &TxMeta{
		AffectedNodes: []AffectedNode{
			{CreatedNode: &NodeData{
				LedgerEntryType: entryNFTokenPage,
				NewFields:       pageFields(metaTokenMinted),
			}},
		},
	}

	id, err := ExtractMintedTokenID(meta)
	assert.NoError(t, err)
	assert.Equal(t, metaTokenMinted, id)
}

func TestExtractMintedTokenID_NoNewToken(t *testing.T) {
	meta := &TxMeta{
		AffectedNodes: []AffectedNode{
			{ModifiedNode: &NodeData{
				LedgerEntryType: entryNFTokenPage,
				PreviousFields:  pageFields(metaTokenExisting),
				FinalFields:     pageFields(metaTokenExisting),
			}},
			{ModifiedNode: &NodeData{LedgerEntryType: "AccountRoot"}},
		},
	}

	_, err := ExtractMintedTokenID(meta)
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	_, err = ExtractMintedTokenID(nil)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestExtractCreatedOfferID(t *testing.T) {
	meta := &TxMeta{
		AffectedNodes: []AffectedNode{
			{ModifiedNode: &NodeData{LedgerEntryType: "AccountRoot"}},
			{CreatedNode: &NodeData{
				LedgerEntryType: entryNFTokenOffer,
				LedgerIndex:     metaOfferIndex,
			}},
		},
	}

	id, err := ExtractCreatedOfferID(meta)
	assert.NoError(t, err)
	assert.Equal(t, metaOfferIndex, id)
}

func TestExtractCreatedOfferID_Missing(t *testing.T) {
	meta := &TxMeta{
		AffectedNodes: []AffectedNode{
			{DeletedNode: &NodeData{LedgerEntryType: entryNFTokenOffer, LedgerIndex: metaOfferIndex}},
		},
	}

	_, err := ExtractCreatedOfferID(meta)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestEngineResultClassification(t *testing.T) {
	assert.True(t, IsProvisionalSuccess("tesSUCCESS"))
	assert.False(t, IsProvisionalSuccess("tecUNFUNDED_PAYMENT"))
	assert.False(t, IsProvisionalSuccess("temBAD_FEE"))

	assert.True(t, IsValidatedSuccess("tesSUCCESS"))
	assert.False(t, IsValidatedSuccess("tecNO_LINE"))
}
