package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// RentalAgreementABI covers the parts of the RentalAgreement contract the
// backend calls.
const RentalAgreementABI = `[
  {
    "type": "function",
    "name": "createAgreement",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_tenant", "type": "address"},
      {"name": "_propertyId", "type": "string"},
      {"name": "_monthlyRent", "type": "uint256"},
      {"name": "_startDate", "type": "uint256"},
      {"name": "_endDate", "type": "uint256"},
      {"name": "_ipfsCID", "type": "string"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "verifyAgreement",
    "stateMutability": "view",
    "inputs": [
      {"name": "_id", "type": "uint256"},
      {"name": "_ipfsCID", "type": "string"}
    ],
    "outputs": [{"name": "", "type": "bool"}]
  },
  {
    "type": "event",
    "name": "AgreementCreated",
    "anonymous": false,
    "inputs": [
      {"name": "id", "type": "uint256", "indexed": true},
      {"name": "owner", "type": "address", "indexed": true},
      {"name": "tenant", "type": "address", "indexed": true},
      {"name": "propertyId", "type": "string", "indexed": false},
      {"name": "monthlyRent", "type": "uint256", "indexed": false},
      {"name": "ipfsCID", "type": "string", "indexed": false}
    ]
  }
]`

const (
	methodCreateAgreement = "createAgreement"
	methodVerifyAgreement = "verifyAgreement"
	eventAgreementCreated = "AgreementCreated"
)

// ParsedABI returns the parsed contract ABI.
func ParsedABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(RentalAgreementABI))
}
