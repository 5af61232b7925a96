package domain

type Creator struct {
	Address  string `json:"address"`
	Verified bool   `json:"verified"`
	Share    uint8  `json:"share"`
}

type Collection struct {
	Verified bool   `json:"verified"`
	Key      string `json:"key"`
}

type Uses struct {
	UseMethod uint8  `json:"useMethod"`
	Remaining uint64 `json:"remaining"`
	Total     uint64 `json:"total"`
}

// TokenMetadata Metaplex 元数据快照
type TokenMetadata struct {
	MetadataAccount      string      `json:"metadataAccount"`
	UpdateAuthority      string      `json:"updateAuthority"`
	Name                 string      `json:"name"`
	Symbol               string      `json:"symbol"`
	URI                  string      `json:"uri"`
	SellerFeeBasisPoints uint16      `json:"sellerFeeBasisPoints"`
	Creators             []Creator   `json:"creators,omitempty"`
	Collection           *Collection `json:"collection,omitempty"`
	Uses                 *Uses       `json:"uses,omitempty"`
	IsMutable            bool        `json:"isMutable"`
	CollectionSize       *uint64     `json:"collectionSize,omitempty"`
}

// Token mint 的物化状态
type Token struct {
	Mint             TokenID
	MintAuthority    string
	FreezeAuthority  string
	Decimals         uint8
	Supply           int64
	Metadata         *TokenMetadata
	RevertableEvents []TokenEvent
}

func EmptyToken(id TokenID) Token {
	return Token{Mint: id}
}

func (t Token) EntityID() TokenID {
	return t.Mint
}

func (t Token) Events() []TokenEvent {
	return t.RevertableEvents
}

func (t Token) WithEvents(events []TokenEvent) Token {
	t.RevertableEvents = events
	return t
}
