// Package proctreetest provides a contract test suite for proctree environments.
package proctreetest

// AllContracts returns all test cases for the contract test suite.
func AllContracts() []TestCase {
	const initialCapacity = 16

	contracts := make([]TestCase, 0, initialCapacity)

	contracts = append(contracts, coreContracts()...)
	contracts = append(contracts, environmentContracts()...)
	contracts = append(contracts, systemContracts()...)
	contracts = append(contracts, errorContracts()...)
	contracts = append(contracts, treeContracts()...)

	return contracts
}
