// Package provider 把链式查询入口注册到依赖注入容器。
//
// 注册的是无状态的 *chain.DB：容器里没有任何随查询变化的可变状态，
// 每个调用方从中派生自己的 *chain.Query。服务同时以注册名与
// *chain.DB 类型串两个键暴露，按名称或按类型解析得到同一实例。
package provider

import (
	"reflect"

	"dbchain/chain"
	"dbchain/chain/sqlexec"
	"dbchain/data/db"
	"dbchain/data/db/basic"
	"dbchain/di"
)

// ServiceName 容器内的注册名。
const ServiceName = "chain.db"

// Register 以惰性单例方式注册链式查询入口。
//
// 数据库连接在首次解析时才建立；配置错误同样推迟到首次解析时
// 暴露，且不会被容器缓存，之后的每次解析都会重试并再次报错。
func Register(c di.IContainer, cfg db.DBConfig, opts ...sqlexec.Option) error {
	factory := func() (*chain.DB, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		database, err := basic.New(cfg)
		if err != nil {
			return nil, err
		}
		return chain.NewDB(sqlexec.New(database, cfg, opts...)), nil
	}
	if err := c.RegisterSingleton(ServiceName, factory); err != nil {
		return err
	}
	return c.Alias(TypeName(), ServiceName)
}

// TypeName 返回按类型解析时使用的键（*chain.DB 的类型串）。
func TypeName() string {
	return reflect.TypeOf((*chain.DB)(nil)).String()
}

// FromContainer 以具体类型解析查询入口。
func FromContainer(c di.IContainer) (*chain.DB, error) {
	var d *chain.DB
	if err := c.ResolveTo(ServiceName, &d); err != nil {
		return nil, err
	}
	return d, nil
}
