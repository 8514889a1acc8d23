package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/chaincode/biomtake/biomtake"
)

func main() {
	biomtakeChaincode, err := contractapi.NewChaincode(&biomtake.SmartContract{})
	if err != nil {
		log.Panicf("Error creating BioMTAKE chaincode: %v", err)
	}

	if err := biomtakeChaincode.Start(); err != nil {
		log.Panicf("Error starting BioMTAKE chaincode: %v", err)
	}
}
