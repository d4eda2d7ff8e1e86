package token

import "corndex/crypto"

const keyPrefix = "token/"

func balanceKey(symbol string, account crypto.Address) []byte {
	return append([]byte(keyPrefix+symbol+"/balance/"), account.Bytes()...)
}

func allowanceKey(symbol string, owner, spender crypto.Address) []byte {
	key := append([]byte(keyPrefix+symbol+"/allowance/"), owner.Bytes()...)
	key = append(key, '/')
	return append(key, spender.Bytes()...)
}

func supplyKey(symbol string) []byte {
	return []byte(keyPrefix + symbol + "/supply")
}
