package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func keccak(s string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(s))
	return h.Sum(nil)
}

func TestABISignatures(t *testing.T) {
	parsed, err := ParsedABI()
	require.NoError(t, err)

	event := parsed.Events[eventAgreementCreated]
	assert.Equal(t, keccak("AgreementCreated(uint256,address,address,string,uint256,string)"), event.ID.Bytes())

	create := parsed.Methods[methodCreateAgreement]
	assert.Equal(t, keccak("createAgreement(address,string,uint256,uint256,uint256,string)")[:4], create.ID)

	verify := parsed.Methods[methodVerifyAgreement]
	assert.Equal(t, keccak("verifyAgreement(uint256,string)")[:4], verify.ID)
}

func TestRentToMinorUnits(t *testing.T) {
	got, err := RentToMinorUnits(decimal.NewFromInt(15000), DefaultRentDecimals)
	require.NoError(t, err)
	assert.Equal(t, "15000000000000000000000", got.String())

	got, err = RentToMinorUnits(decimal.RequireFromString("1234.56"), 2)
	require.NoError(t, err)
	assert.Equal(t, "123456", got.String())

	_, err = RentToMinorUnits(decimal.RequireFromString("0.001"), 2)
	assert.Error(t, err)

	_, err = RentToMinorUnits(decimal.Zero, 18)
	assert.Error(t, err)

	_, err = RentToMinorUnits(decimal.NewFromInt(-5), 18)
	assert.Error(t, err)
}
