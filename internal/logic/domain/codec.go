package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeromicro/go-zero/core/jsonx"
)

var ErrUnknownEventType = errors.New("unknown event type")

// envelope 事件序列化外壳，反序列化只依赖 type 判别，不做结构推断
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func wrap(e Event) (envelope, error) {
	data, err := jsonx.Marshal(e)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal %s: %w", e.Type(), err)
	}
	return envelope{Type: e.Type(), Data: data}, nil
}

func decode[T any](env envelope) (T, error) {
	var v T
	if err := jsonx.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return v, nil
}

func unwrapBalanceEvent(env envelope) (BalanceEvent, error) {
	switch env.Type {
	case TypeBalanceInitialize:
		return decode[BalanceInitializeEvent](env)
	case TypeBalanceIncome:
		return decode[BalanceIncomeEvent](env)
	case TypeBalanceOutcome:
		return decode[BalanceOutcomeEvent](env)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
}

func unwrapTokenEvent(env envelope) (TokenEvent, error) {
	switch env.Type {
	case TypeTokenInitialize:
		return decode[TokenInitializeEvent](env)
	case TypeTokenSupplyIncrease:
		return decode[TokenSupplyIncreaseEvent](env)
	case TypeTokenSupplyDecrease:
		return decode[TokenSupplyDecreaseEvent](env)
	case TypeTokenMetadata:
		return decode[TokenMetadataEvent](env)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
}

// MarshalEvent 单个事件 → envelope JSON
func MarshalEvent(e Event) ([]byte, error) {
	env, err := wrap(e)
	if err != nil {
		return nil, err
	}
	return jsonx.Marshal(env)
}

func UnmarshalBalanceEvent(data []byte) (BalanceEvent, error) {
	var env envelope
	if err := jsonx.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return unwrapBalanceEvent(env)
}

func UnmarshalTokenEvent(data []byte) (TokenEvent, error) {
	var env envelope
	if err := jsonx.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return unwrapTokenEvent(env)
}

type balanceJSON struct {
	Account BalanceID  `json:"account"`
	Mint    string     `json:"mint"`
	Owner   string     `json:"owner"`
	Value   int64      `json:"value"`
	Events  []envelope `json:"revertableEvents"`
}

func (b Balance) MarshalJSON() ([]byte, error) {
	out := balanceJSON{
		Account: b.Account,
		Mint:    b.Mint,
		Owner:   b.Owner,
		Value:   b.Value,
		Events:  make([]envelope, 0, len(b.RevertableEvents)),
	}
	for _, e := range b.RevertableEvents {
		env, err := wrap(e)
		if err != nil {
			return nil, err
		}
		out.Events = append(out.Events, env)
	}
	return jsonx.Marshal(out)
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var in balanceJSON
	if err := jsonx.Unmarshal(data, &in); err != nil {
		return err
	}
	events := make([]BalanceEvent, 0, len(in.Events))
	for _, env := range in.Events {
		e, err := unwrapBalanceEvent(env)
		if err != nil {
			return err
		}
		events = append(events, e)
	}
	*b = Balance{
		Account:          in.Account,
		Mint:             in.Mint,
		Owner:            in.Owner,
		Value:            in.Value,
		RevertableEvents: events,
	}
	return nil
}

type tokenJSON struct {
	Mint            TokenID        `json:"mint"`
	MintAuthority   string         `json:"mintAuthority"`
	FreezeAuthority string         `json:"freezeAuthority,omitempty"`
	Decimals        uint8          `json:"decimals"`
	Supply          int64          `json:"supply"`
	Metadata        *TokenMetadata `json:"metadata,omitempty"`
	Events          []envelope     `json:"revertableEvents"`
}

func (t Token) MarshalJSON() ([]byte, error) {
	out := tokenJSON{
		Mint:            t.Mint,
		MintAuthority:   t.MintAuthority,
		FreezeAuthority: t.FreezeAuthority,
		Decimals:        t.Decimals,
		Supply:          t.Supply,
		Metadata:        t.Metadata,
		Events:          make([]envelope, 0, len(t.RevertableEvents)),
	}
	for _, e := range t.RevertableEvents {
		env, err := wrap(e)
		if err != nil {
			return nil, err
		}
		out.Events = append(out.Events, env)
	}
	return jsonx.Marshal(out)
}

func (t *Token) UnmarshalJSON(data []byte) error {
	var in tokenJSON
	if err := jsonx.Unmarshal(data, &in); err != nil {
		return err
	}
	events := make([]TokenEvent, 0, len(in.Events))
	for _, env := range in.Events {
		e, err := unwrapTokenEvent(env)
		if err != nil {
			return err
		}
		events = append(events, e)
	}
	*t = Token{
		Mint:             in.Mint,
		MintAuthority:    in.MintAuthority,
		FreezeAuthority:  in.FreezeAuthority,
		Decimals:         in.Decimals,
		Supply:           in.Supply,
		Metadata:         in.Metadata,
		RevertableEvents: events,
	}
	return nil
}
