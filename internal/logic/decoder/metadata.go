package decoder

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/near/borsh-go"

	"token-indexer-sol/internal/types"
)

// Metaplex Token Metadata 指令 opcode
const (
	metadataOpCreate   = 0
	metadataOpCreateV2 = 16
	metadataOpCreateV3 = 33
)

// Metaplex 程序对字符串长度的上限（mpl-token-metadata state.rs）
const (
	maxNameLength   = 32
	maxSymbolLength = 10
	maxURILength    = 200
)

// borsh 反序列化使用的内部结构，字段必须导出
type borshCreator struct {
	Address  types.Pubkey
	Verified bool
	Share    uint8
}

type borshCollection struct {
	Verified bool
	Key      types.Pubkey
}

type borshUses struct {
	UseMethod uint8
	Remaining uint64
	Total     uint64
}

type borshCollectionDetails struct {
	Enum borsh.Enum `borsh_enum:"true"`
	V1   borshCollectionSize
}

type borshCollectionSize struct {
	Size uint64
}

type borshCreateArgs struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]borshCreator
	IsMutable            bool
}

type borshCreateArgsV2 struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]borshCreator
	Collection           *borshCollection
	Uses                 *borshUses
	IsMutable            bool
}

type borshCreateArgsV3 struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]borshCreator
	Collection           *borshCollection
	Uses                 *borshUses
	IsMutable            bool
	CollectionDetails    *borshCollectionDetails
}

// decodeMetadata 解析 CreateMetadataAccount / V2 / V3
func decodeMetadata(program types.Pubkey, data []byte) (Instruction, error) {
	body := data[1:]
	switch data[0] {
	case metadataOpCreate, metadataOpCreateV2, metadataOpCreateV3:
	default:
		return nil, newDecodeError(program, data, "unsupported metadata opcode", nil)
	}

	// borsh 会按声明长度直接分配字符串内存，先校验长度
	if err := checkMetadataStrings(body); err != nil {
		return nil, newDecodeError(program, data, "metadata strings", err)
	}

	switch data[0] {
	case metadataOpCreate:
		var args borshCreateArgs
		if err := borsh.Deserialize(&args, body); err != nil {
			return nil, newDecodeError(program, data, "borsh create metadata", err)
		}
		return &CreateMetadataAccount{
			Version:              1,
			Name:                 trimPadding(args.Name),
			Symbol:               trimPadding(args.Symbol),
			URI:                  trimPadding(args.URI),
			SellerFeeBasisPoints: args.SellerFeeBasisPoints,
			Creators:             convertCreators(args.Creators),
			IsMutable:            args.IsMutable,
		}, nil

	case metadataOpCreateV2:
		var args borshCreateArgsV2
		if err := borsh.Deserialize(&args, body); err != nil {
			return nil, newDecodeError(program, data, "borsh create metadata v2", err)
		}
		return &CreateMetadataAccount{
			Version:              2,
			Name:                 trimPadding(args.Name),
			Symbol:               trimPadding(args.Symbol),
			URI:                  trimPadding(args.URI),
			SellerFeeBasisPoints: args.SellerFeeBasisPoints,
			Creators:             convertCreators(args.Creators),
			Collection:           convertCollection(args.Collection),
			Uses:                 convertUses(args.Uses),
			IsMutable:            args.IsMutable,
		}, nil

	default:
		var args borshCreateArgsV3
		if err := borsh.Deserialize(&args, body); err != nil {
			return nil, newDecodeError(program, data, "borsh create metadata v3", err)
		}
		ix := &CreateMetadataAccount{
			Version:              3,
			Name:                 trimPadding(args.Name),
			Symbol:               trimPadding(args.Symbol),
			URI:                  trimPadding(args.URI),
			SellerFeeBasisPoints: args.SellerFeeBasisPoints,
			Creators:             convertCreators(args.Creators),
			Collection:           convertCollection(args.Collection),
			Uses:                 convertUses(args.Uses),
			IsMutable:            args.IsMutable,
		}
		if d := args.CollectionDetails; d != nil && d.V1.Size > 0 {
			size := d.V1.Size
			ix.CollectionSize = &size
		}
		return ix, nil
	}
}

// checkMetadataStrings 校验 name / symbol / uri 三个前缀字符串的长度声明
func checkMetadataStrings(body []byte) error {
	limits := [...]struct {
		field string
		max   int
	}{
		{"name", maxNameLength},
		{"symbol", maxSymbolLength},
		{"uri", maxURILength},
	}
	off := 0
	for _, lim := range limits {
		if len(body)-off < 4 {
			return fmt.Errorf("%s: missing length prefix", lim.field)
		}
		l := int(binary.LittleEndian.Uint32(body[off : off+4]))
		off += 4
		if l > lim.max {
			return fmt.Errorf("%s: length %d exceeds %d", lim.field, l, lim.max)
		}
		if len(body)-off < l {
			return fmt.Errorf("%s: length %d exceeds remaining %d", lim.field, l, len(body)-off)
		}
		off += l
	}
	return nil
}

// borsh-go 对 None 也会返回指向零值的指针，这里统一归一化为 nil
func convertCreators(in *[]borshCreator) []Creator {
	if in == nil || len(*in) == 0 {
		return nil
	}
	out := make([]Creator, 0, len(*in))
	for _, c := range *in {
		out = append(out, Creator{Address: c.Address, Verified: c.Verified, Share: c.Share})
	}
	return out
}

func convertCollection(in *borshCollection) *Collection {
	if in == nil || in.Key.IsZero() {
		return nil
	}
	return &Collection{Verified: in.Verified, Key: in.Key}
}

func convertUses(in *borshUses) *Uses {
	if in == nil || (in.Total == 0 && in.Remaining == 0 && in.UseMethod == 0) {
		return nil
	}
	return &Uses{UseMethod: in.UseMethod, Remaining: in.Remaining, Total: in.Total}
}

func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}
